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

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	userService *services.UserService
	dispatcher  EffectDispatcher
}

func NewUserHandler(userService *services.UserService, dispatcher EffectDispatcher) *UserHandler {
	return &UserHandler{
		userService: userService,
		dispatcher:  dispatcher,
	}
}

// CreateUser creates an account with a mailed temporary password.
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Fname      string            `json:"fname"`
		Lname      string            `json:"lname"`
		Email      string            `json:"email"`
		GlobalRole models.GlobalRole `json:"global_role"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, effects, err := h.userService.CreateUser(c.Request.Context(), caller, services.CreateUserInput{
		Fname:      req.Fname,
		Lname:      req.Lname,
		Email:      req.Email,
		GlobalRole: req.GlobalRole,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// ListUsers returns a page of users, optionally filtered by role and search term.
func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListUsersInput{
		Search:         c.Query("search"),
		IncludeDeleted: queryBool(c, "include_deleted"),
		Pagination:     params,
	}
	if role := c.Query("role"); role != "" {
		r := models.GlobalRole(role)
		input.Role = &r
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), caller, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      dto.ToUserDTOs(users),
		"pagination": utils.NewPaginationResponse(params, total),
	})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	type UpdateUserRequest struct {
		Fname      *string            `json:"fname"`
		Lname      *string            `json:"lname"`
		Email      *string            `json:"email"`
		GlobalRole *models.GlobalRole `json:"global_role"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), caller, id, services.UpdateUserInput{
		Fname:      req.Fname,
		Lname:      req.Lname,
		Email:      req.Email,
		GlobalRole: req.GlobalRole,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// SetUserStatus activates or deactivates an account.
func (h *UserHandler) SetUserStatus(c *gin.Context) {
	type StatusRequest struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}

	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "is_active is required.")
		return
	}

	user, effects, err := h.userService.SetUserStatus(c.Request.Context(), caller, id, *req.IsActive)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), caller, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) RestoreUser(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.RestoreUser(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
