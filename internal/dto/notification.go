package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// NotificationDTO represents an inbox entry
type NotificationDTO struct {
	ID           uint64                      `json:"id"`
	Type         models.NotificationType     `json:"type"`
	Title        string                      `json:"title"`
	Message      string                      `json:"message"`
	Priority     models.NotificationPriority `json:"priority"`
	Read         bool                        `json:"read"`
	ReadAt       *time.Time                  `json:"read_at,omitempty"`
	RelatedID    *uint64                     `json:"related_id,omitempty"`
	RelatedModel string                      `json:"related_model,omitempty"`
	Metadata     map[string]string           `json:"metadata,omitempty"`
	ExpiresAt    time.Time                   `json:"expires_at"`
	CreatedAt    time.Time                   `json:"created_at"`
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:           n.ID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		Priority:     n.Priority,
		Read:         n.Read,
		ReadAt:       n.ReadAt,
		RelatedID:    n.RelatedID,
		RelatedModel: n.RelatedModel,
		Metadata:     n.Metadata,
		ExpiresAt:    n.ExpiresAt,
		CreatedAt:    n.CreatedAt,
	}
}

func ToNotificationDTOs(items []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(items))
	for i, n := range items {
		out[i] = ToNotificationDTO(n)
	}
	return out
}
