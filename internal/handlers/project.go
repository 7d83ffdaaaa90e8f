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

type ProjectHandler struct {
	projectService *services.ProjectService
	dispatcher     EffectDispatcher
}

func NewProjectHandler(projectService *services.ProjectService, dispatcher EffectDispatcher) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		dispatcher:     dispatcher,
	}
}

type memberRequest struct {
	UserID      uint64             `json:"user_id"`
	ProjectRole models.ProjectRole `json:"project_role"`
}

func toMemberInputs(members []memberRequest) []services.MemberInput {
	out := make([]services.MemberInput, len(members))
	for i, m := range members {
		out[i] = services.MemberInput{UserID: m.UserID, ProjectRole: m.ProjectRole}
	}
	return out
}

// CreateProject creates a project; admin only.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateProjectRequest struct {
		Title       string                `json:"title"`
		Description string                `json:"description"`
		StartDate   *string               `json:"start_date"`
		EndDate     *string               `json:"end_date"`
		LeaderID    uint64                `json:"leader_id"`
		Status      *models.ProjectStatus `json:"status"`
		Members     []memberRequest       `json:"members"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	start, err := optionalDate(req.StartDate, "start_date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	end, err := optionalDate(req.EndDate, "end_date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	project, effects, err := h.projectService.CreateProject(c.Request.Context(), caller, services.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		LeaderID:    req.LeaderID,
		Status:      req.Status,
		Members:     toMemberInputs(req.Members),
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns the projects visible to the caller
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListProjectsInput{
		Search:         c.Query("search"),
		IncludeDeleted: queryBool(c, "include_deleted"),
		Pagination:     params,
	}
	if status := c.Query("status"); status != "" {
		s := models.ProjectStatus(status)
		input.Status = &s
	}

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), caller, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects":   dto.ToProjectDTOs(projects),
		"pagination": utils.NewPaginationResponse(params, total),
	})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProject applies a partial update. A members array replaces the member list.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	type UpdateProjectRequest struct {
		Title       *string               `json:"title"`
		Description *string               `json:"description"`
		StartDate   *string               `json:"start_date"`
		EndDate     *string               `json:"end_date"`
		Status      *models.ProjectStatus `json:"status"`
		LeaderID    *uint64               `json:"leader_id"`
		Members     *[]memberRequest      `json:"members"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	start, err := optionalDate(req.StartDate, "start_date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	end, err := optionalDate(req.EndDate, "end_date")
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	input := services.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      req.Status,
		LeaderID:    req.LeaderID,
	}
	if req.Members != nil {
		members := toMemberInputs(*req.Members)
		input.Members = &members
	}

	project, effects, err := h.projectService.UpdateProject(c.Request.Context(), caller, id, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), caller, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (h *ProjectHandler) RestoreProject(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.RestoreProject(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// Stats returns per-status counts of the caller's visible projects.
func (h *ProjectHandler) Stats(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	stats, err := h.projectService.Stats(c.Request.Context(), caller)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectStatsDTO(stats.Total, stats.ByStatus))
}
