package models

import "time"

type NotificationType string

const (
	NotificationWelcome          NotificationType = "welcome"
	NotificationTaskAssigned     NotificationType = "task_assigned"
	NotificationProjectAssigned  NotificationType = "project_assigned"
	NotificationPasswordResetOTP NotificationType = "password_reset_otp"
	NotificationPasswordChanged  NotificationType = "password_changed"
	NotificationAccountStatus    NotificationType = "account_status"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

type Notification struct {
	ID           uint64               `gorm:"primarykey" json:"id"`
	UserID       uint64               `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type         NotificationType     `gorm:"type:varchar(30);not null;index" json:"type"`
	Title        string               `gorm:"type:varchar(200);not null" json:"title"`
	Message      string               `gorm:"type:varchar(1000);not null" json:"message"`
	Priority     NotificationPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Read         bool                 `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read" json:"read"`
	ReadAt       *time.Time           `json:"read_at,omitempty"`
	RelatedID    *uint64              `gorm:"index" json:"related_id,omitempty"`
	RelatedModel string               `gorm:"type:varchar(20)" json:"related_model,omitempty"`
	Metadata     map[string]string    `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	CreatedBy    *uint64              `json:"created_by,omitempty"`
	ExpiresAt    time.Time            `gorm:"index" json:"expires_at"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	SoftDelete
}
