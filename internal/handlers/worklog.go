package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type WorklogHandler struct {
	worklogService *services.WorklogService
}

func NewWorklogHandler(worklogService *services.WorklogService) *WorklogHandler {
	return &WorklogHandler{worklogService: worklogService}
}

// worklogQuery reads the shared list and summary filters.
func worklogQuery(c *gin.Context) (services.WorklogQuery, error) {
	var (
		q   services.WorklogQuery
		err error
	)
	if q.UserID, err = queryUint(c, "user_id"); err != nil {
		return q, err
	}
	if q.TaskID, err = queryUint(c, "task_id"); err != nil {
		return q, err
	}
	if q.ProjectID, err = queryUint(c, "project_id"); err != nil {
		return q, err
	}
	if q.StartDate, err = queryDate(c, "start_date"); err != nil {
		return q, err
	}
	if q.EndDate, err = queryDate(c, "end_date"); err != nil {
		return q, err
	}
	q.OvertimeOnly = queryBool(c, "overtime_only")
	return q, nil
}

// CreateWorklog logs hours for the caller against a task.
func (h *WorklogHandler) CreateWorklog(c *gin.Context) {
	type CreateWorklogRequest struct {
		TaskID      uint64  `json:"task_id"`
		Date        string  `json:"date"`
		Hours       float64 `json:"hours"`
		Description string  `json:"description"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req CreateWorklogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	date, err := optionalDate(&req.Date, "date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	input := services.CreateWorklogInput{
		TaskID:      req.TaskID,
		Hours:       req.Hours,
		Description: req.Description,
	}
	if date != nil {
		input.Date = *date
	}

	worklog, err := h.worklogService.CreateWorklog(c.Request.Context(), caller, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorklogDTO(*worklog))
}

// ListWorklogs returns the entries visible to the caller
func (h *WorklogHandler) ListWorklogs(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	q, err := worklogQuery(c)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	worklogs, total, err := h.worklogService.ListWorklogs(c.Request.Context(), caller, q, params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"worklogs":   dto.ToWorklogDTOs(worklogs),
		"pagination": utils.NewPaginationResponse(params, total),
	})
}

func (h *WorklogHandler) GetWorklog(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	worklog, err := h.worklogService.GetWorklog(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorklogDTO(*worklog))
}

func (h *WorklogHandler) UpdateWorklog(c *gin.Context) {
	type UpdateWorklogRequest struct {
		Date        *string  `json:"date"`
		Hours       *float64 `json:"hours"`
		Description *string  `json:"description"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateWorklogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	date, err := optionalDate(req.Date, "date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	worklog, err := h.worklogService.UpdateWorklog(c.Request.Context(), caller, id, services.UpdateWorklogInput{
		Date:        date,
		Hours:       req.Hours,
		Description: req.Description,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorklogDTO(*worklog))
}

func (h *WorklogHandler) DeleteWorklog(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.worklogService.DeleteWorklog(c.Request.Context(), caller, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Worklog deleted successfully"})
}

func (h *WorklogHandler) RestoreWorklog(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	worklog, err := h.worklogService.RestoreWorklog(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorklogDTO(*worklog))
}

// Summary aggregates visible hours by user, task, project or date (group_by).
func (h *WorklogHandler) Summary(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	q, err := worklogQuery(c)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	summary, err := h.worklogService.Summary(c.Request.Context(), caller, q, repository.SummaryGroup(c.Query("group_by")))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorklogSummaryDTO(*summary))
}
