package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	dispatcher  EffectDispatcher
}

func NewTaskHandler(taskService *services.TaskService, dispatcher EffectDispatcher) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		dispatcher:  dispatcher,
	}
}

type createTaskRequest struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	ProjectID      uint64               `json:"project_id"`
	AssignedTo     *uint64              `json:"assigned_to"`
	ParentTaskID   *uint64              `json:"parent_task_id"`
	Priority       *models.TaskPriority `json:"priority"`
	EstimatedHours *float64             `json:"estimated_hours"`
	StartDate      *string              `json:"start_date"`
	EndDate        *string              `json:"end_date"`
}

func (r createTaskRequest) input() (services.CreateTaskInput, error) {
	start, err := optionalDate(r.StartDate, "start_date")
	if err != nil {
		return services.CreateTaskInput{}, err
	}
	end, err := optionalDate(r.EndDate, "end_date")
	if err != nil {
		return services.CreateTaskInput{}, err
	}
	return services.CreateTaskInput{
		Title:          r.Title,
		Description:    r.Description,
		ProjectID:      r.ProjectID,
		AssignedTo:     r.AssignedTo,
		ParentTaskID:   r.ParentTaskID,
		Priority:       r.Priority,
		EstimatedHours: r.EstimatedHours,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

// updateTaskRequest has no parent field; a task's parent is fixed at creation.
// It is decoded strictly, so unknown keys such as parent_task_id are rejected.
type updateTaskRequest struct {
	Title          *string              `json:"title"`
	Description    *string              `json:"description"`
	AssignedTo     *uint64              `json:"assigned_to"`
	Status         *models.TaskStatus   `json:"status"`
	Priority       *models.TaskPriority `json:"priority"`
	EstimatedHours *float64             `json:"estimated_hours"`
	ActualHours    *float64             `json:"actual_hours"`
	StartDate      *string              `json:"start_date"`
	EndDate        *string              `json:"end_date"`
}

func (r updateTaskRequest) patch() (services.TaskPatch, error) {
	start, err := optionalDate(r.StartDate, "start_date")
	if err != nil {
		return services.TaskPatch{}, err
	}
	end, err := optionalDate(r.EndDate, "end_date")
	if err != nil {
		return services.TaskPatch{}, err
	}
	return services.TaskPatch{
		Title:          r.Title,
		Description:    r.Description,
		AssignedTo:     r.AssignedTo,
		Status:         r.Status,
		Priority:       r.Priority,
		EstimatedHours: r.EstimatedHours,
		ActualHours:    r.ActualHours,
		StartDate:      start,
		EndDate:        end,
	}, nil
}

// CreateTask creates a task, or a subtask when parent_task_id is given
func (h *TaskHandler) CreateTask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	input, err := req.input()
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, effects, err := h.taskService.CreateTask(c.Request.Context(), caller, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTasks returns the tasks in projects the caller can access
// Can filter by project_id, status, priority, assigned_to and search
func (h *TaskHandler) ListTasks(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	projectID, err := queryUint(c, "project_id")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	assignedTo, err := queryUint(c, "assigned_to")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		ProjectID:    projectID,
		AssignedTo:   assignedTo,
		Search:       c.Query("search"),
		TopLevelOnly: queryBool(c, "top_level"),
		Pagination:   params,
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), caller, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      dto.ToTaskDTOs(tasks),
		"pagination": utils.NewPaginationResponse(params, total),
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update, including status transitions
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if !bindPatch(c, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, effects, err := h.taskService.UpdateTask(c.Request.Context(), caller, id, patch)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), caller, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *TaskHandler) RestoreTask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.RestoreTask(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// Subtasks

func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	input, err := req.input()
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, effects, err := h.taskService.CreateSubtask(c.Request.Context(), caller, parentID, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) ListSubtasks(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	subtasks, err := h.taskService.ListSubtasks(c.Request.Context(), caller, parentID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subtasks": dto.ToTaskDTOs(subtasks)})
}

func (h *TaskHandler) GetSubtask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	subtaskID, ok := idParam(c, "subtaskId")
	if !ok {
		return
	}

	task, err := h.taskService.GetSubtask(c.Request.Context(), caller, parentID, subtaskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	subtaskID, ok := idParam(c, "subtaskId")
	if !ok {
		return
	}

	var req updateTaskRequest
	if !bindPatch(c, &req) {
		return
	}
	patch, err := req.patch()
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	task, effects, err := h.taskService.UpdateSubtask(c.Request.Context(), caller, parentID, subtaskID, patch)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	subtaskID, ok := idParam(c, "subtaskId")
	if !ok {
		return
	}

	if err := h.taskService.DeleteSubtask(c.Request.Context(), caller, parentID, subtaskID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

func (h *TaskHandler) RestoreSubtask(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	parentID, ok := idParam(c, "id")
	if !ok {
		return
	}
	subtaskID, ok := idParam(c, "subtaskId")
	if !ok {
		return
	}

	task, err := h.taskService.RestoreSubtask(c.Request.Context(), caller, parentID, subtaskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}
