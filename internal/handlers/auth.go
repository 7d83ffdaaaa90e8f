package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	dispatcher  EffectDispatcher
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, dispatcher EffectDispatcher) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		dispatcher:  dispatcher,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login authenticates a user and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email and password are required.")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": dto.ToUserDTO(*result.User),
		"tokens": tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int64(result.Tokens.ExpiresIn.Seconds()),
		},
		"is_temp_password": result.IsTempPassword,
	})
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Unauthorized(c, "Refresh token required")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}

// Logout drops the stored refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Me returns the authenticated user and their project assignments.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile.User, profile.Assignments))
}

// Sessions reports the caller's refresh-token session.
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	sessions, err := h.authService.Sessions(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	items := make([]gin.H, len(sessions))
	for i, s := range sessions {
		items[i] = gin.H{
			"has_active_session": s.HasActiveSession,
			"last_active":        s.LastActive,
			"current_device":     s.CurrentDevice,
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": items})
}

// RevokeSessions signs the caller out everywhere.
func (h *AuthHandler) RevokeSessions(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	at, err := h.authService.RevokeSessions(c.Request.Context(), userID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "All sessions revoked",
		"revoked_at": at,
	})
}

// SetNewPassword replaces a temporary password.
func (h *AuthHandler) SetNewPassword(c *gin.Context) {
	type SetPasswordRequest struct {
		NewPassword string `json:"new_password" binding:"required"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "New password is required.")
		return
	}

	effects, err := h.authService.SetNewPassword(c.Request.Context(), userID, req.NewPassword)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated successfully",
	})
}

// RequestPasswordReset mails a one-time code. The response never reveals whether the email exists.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	type ResetRequest struct {
		Email string `json:"email" binding:"required"`
	}

	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email is required.")
		return
	}

	effects, err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, gin.H{
		"message": constants.GenericOTPResponse,
	})
}

// VerifyPasswordReset checks a one-time code.
func (h *AuthHandler) VerifyPasswordReset(c *gin.Context) {
	type VerifyRequest struct {
		Email string `json:"email" binding:"required"`
		OTP   string `json:"otp" binding:"required"`
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email and OTP are required.")
		return
	}

	if err := h.authService.VerifyPasswordReset(c.Request.Context(), req.Email, req.OTP); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "OTP verified successfully",
	})
}

// ChangePassword completes the reset flow.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	type ChangeRequest struct {
		Email       string `json:"email" binding:"required"`
		OTP         string `json:"otp" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email, OTP and new password are required.")
		return
	}

	effects, err := h.authService.ChangePassword(c.Request.Context(), services.ChangePasswordInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	h.dispatcher.Dispatch(c.Request.Context(), effects...)

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}
