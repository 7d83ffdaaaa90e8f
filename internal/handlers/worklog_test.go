package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *HandlerTestSuite) logHours(user *models.User, taskID uint64, hours float64) *httptest.ResponseRecorder {
	return suite.request(http.MethodPost, "/worklogs", user, gin.H{
		"task_id":     taskID,
		"date":        time.Now().UTC().Format("2006-01-02"),
		"hours":       hours,
		"description": "Schema work",
	})
}

func (suite *HandlerTestSuite) TestCreateWorklogOvertime() {
	project := suite.createProject("Apollo")
	task := suite.createTask(uint64(project["id"].(float64)), "Design schema")

	w := suite.logHours(suite.dev, task.ID, 5)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var first dto.WorklogDTO
	suite.decode(w, &first)
	suite.False(first.IsOvertime)
	suite.Equal(5.0, first.Hours)

	w = suite.logHours(suite.dev, task.ID, 4)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var second dto.WorklogDTO
	suite.decode(w, &second)
	suite.True(second.IsOvertime)

	var stored models.Task
	suite.Require().NoError(suite.db.First(&stored, task.ID).Error)
	suite.InDelta(9.0, stored.ActualHours, 0.001)
}

func (suite *HandlerTestSuite) TestCreateWorklogValidation() {
	project := suite.createProject("Apollo")
	task := suite.createTask(uint64(project["id"].(float64)), "Design schema")

	w := suite.logHours(suite.dev, task.ID, 30)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Hours must be between 0.25 and 24.")

	w = suite.request(http.MethodPost, "/worklogs", suite.dev, gin.H{
		"task_id":     task.ID,
		"date":        time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
		"hours":       2,
		"description": "Schema work",
	})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Date cannot be in the future.")

	w = suite.request(http.MethodPost, "/worklogs", suite.dev, gin.H{
		"task_id": task.ID,
		"date":    "yesterday",
		"hours":   2,
	})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid date.")

	other := suite.createUser("other@example.com", models.RoleTeamMember)
	w = suite.logHours(other, task.ID, 2)
	suite.assertError(w, http.StatusForbidden, apierrors.ErrCodeForbidden, authz.MsgNotAssigned)
}

func (suite *HandlerTestSuite) TestWorklogSummary() {
	project := suite.createProject("Apollo")
	task := suite.createTask(uint64(project["id"].(float64)), "Design schema")
	suite.Require().Equal(http.StatusCreated, suite.logHours(suite.dev, task.ID, 5).Code)
	suite.Require().Equal(http.StatusCreated, suite.logHours(suite.dev, task.ID, 4).Code)

	w := suite.request(http.MethodGet, "/worklogs/insights/summary?group_by=user", suite.pm, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var summary dto.WorklogSummaryDTO
	suite.decode(w, &summary)
	suite.Equal("user", summary.GroupBy)
	suite.Require().Len(summary.Groups, 1)
	suite.Equal(fmt.Sprint(suite.dev.ID), summary.Groups[0].Key)
	suite.InDelta(9.0, summary.Overall.TotalHours, 0.001)
	suite.InDelta(4.0, summary.Overall.OvertimeHours, 0.001)
	suite.InDelta(5.0, summary.Overall.RegularHours, 0.001)
	suite.Equal(int64(2), summary.Overall.WorklogCount)

	w = suite.request(http.MethodGet, "/worklogs/insights/summary?group_by=week", suite.pm, nil)
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "")
}
