package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications returns the caller's unexpired notifications, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	inbox, err := h.notificationService.List(c.Request.Context(), caller, queryBool(c, "unread_only"), params)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": dto.ToNotificationDTOs(inbox.Items),
		"unread_count":  inbox.Unread,
		"pagination":    utils.NewPaginationResponse(params, inbox.Total),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), caller)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), caller, id)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToNotificationDTO(*n))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), caller)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), caller, id); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
