package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *HandlerTestSuite) createTask(projectID uint64, title string) dto.TaskDTO {
	w := suite.request(http.MethodPost, "/tasks", suite.pm, gin.H{
		"title":       title,
		"project_id":  projectID,
		"assigned_to": suite.dev.ID,
		"priority":    models.TaskPriorityHigh,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	suite.decode(w, &task)
	return task
}

func (suite *HandlerTestSuite) TestCreateTask() {
	project := suite.createProject("Apollo")
	projectID := uint64(project["id"].(float64))
	suite.dispatcher.effects = nil

	task := suite.createTask(projectID, "Design schema")
	suite.Equal("APO-1", task.TaskNumber)
	suite.Equal(models.TaskStatusPending, task.Status)
	suite.Equal(models.TaskPriorityHigh, task.Priority)
	suite.Require().NotNil(task.AssignedTo)
	suite.Equal(suite.dev.ID, *task.AssignedTo)
	suite.Equal([]models.NotificationType{models.NotificationTaskAssigned}, suite.dispatcher.kinds())

	second := suite.createTask(projectID, "Write migrations")
	suite.Equal("APO-2", second.TaskNumber)

	w := suite.request(http.MethodPost, "/tasks", suite.pm, gin.H{"project_id": projectID})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Title and Project ID are required.")

	w = suite.request(http.MethodPost, "/tasks", suite.dev, gin.H{"title": "Sneaky", "project_id": projectID})
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, "")
}

func (suite *HandlerTestSuite) TestUpdateTaskStatus() {
	project := suite.createProject("Apollo")
	task := suite.createTask(uint64(project["id"].(float64)), "Design schema")
	path := fmt.Sprintf("/tasks/%d", task.ID)

	w := suite.request(http.MethodPatch, path, suite.dev, gin.H{"status": models.TaskStatusOpen, "parent_task_id": 9})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, `Field "parent_task_id" cannot be updated.`)
	var rejected struct {
		Details map[string]string `json:"details"`
	}
	suite.decode(w, &rejected)
	suite.Equal("parent_task_id", rejected.Details["field"])

	w = suite.request(http.MethodPatch, path, suite.dev, "not json")
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body")

	w = suite.request(http.MethodPatch, path, suite.dev, gin.H{"status": models.TaskStatusOpen})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	suite.decode(w, &updated)
	suite.Equal(models.TaskStatusOpen, updated.Status)

	w = suite.request(http.MethodPatch, path, suite.dev, gin.H{"status": models.TaskStatusReview})
	suite.assertError(w, http.StatusConflict, apierrors.ErrCodeInvalidState, "Invalid transition from open to review.")

	w = suite.request(http.MethodPatch, path, suite.dev, gin.H{"title": "Renamed"})
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, authz.MsgRestrictedFields)

	w = suite.request(http.MethodPatch, path, suite.pm, gin.H{})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "No fields to update.")

	w = suite.request(http.MethodPatch, "/tasks/999", suite.pm, gin.H{"title": "Ghost"})
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "")
}

func (suite *HandlerTestSuite) TestSubtaskEndpoints() {
	project := suite.createProject("Apollo")
	parent := suite.createTask(uint64(project["id"].(float64)), "Design schema")
	base := fmt.Sprintf("/tasks/%d", parent.ID)

	w := suite.request(http.MethodPost, base+"/subtasks", suite.pm, gin.H{"title": "Draft ERD"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var sub dto.TaskDTO
	suite.decode(w, &sub)
	suite.Require().NotNil(sub.ParentTaskID)
	suite.Equal(parent.ID, *sub.ParentTaskID)
	suite.Require().NotNil(sub.AssignedTo)
	suite.Equal(suite.dev.ID, *sub.AssignedTo)
	suite.Equal("APO-2", sub.TaskNumber)

	w = suite.request(http.MethodGet, base+"/subtasks", suite.dev, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Subtasks []dto.TaskDTO `json:"subtasks"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Subtasks, 1)
	suite.Equal(sub.ID, list.Subtasks[0].ID)

	w = suite.request(http.MethodDelete, base, suite.pm, nil)
	suite.assertError(w, http.StatusConflict, apierrors.ErrCodeInvalidState, "Cannot delete task with subtasks.")
}
