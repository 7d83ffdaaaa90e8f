package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create creates a new notification
func (r *GormNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("notifications", includeDeleted)).
		First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *GormNotificationRepository) inbox(ctx context.Context, userID uint64, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(database.Live("notifications", false)).
		Where("notifications.user_id = ? AND notifications.expires_at > ?", userID, now)
}

// ListForUser lists the user's unexpired notifications, newest first
func (r *GormNotificationRepository) ListForUser(ctx context.Context, userID uint64, unreadOnly bool, now time.Time, offset, limit int) ([]models.Notification, int64, error) {
	base := func() *gorm.DB {
		query := r.inbox(ctx, userID, now)
		if unreadOnly {
			query = query.Where("notifications.is_read = ?", false)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Notification
	if err := base().
		Scopes(database.Window(offset, limit)).
		Order("notifications.created_at DESC").
		Order("notifications.id DESC").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountUnread counts the user's unread, unexpired notifications
func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.inbox(ctx, userID, now).
		Where("notifications.is_read = ?", false).
		Count(&count).Error
	return count, err
}

// Update saves a notification
func (r *GormNotificationRepository) Update(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

// MarkAllRead flags every unread notification of the user as read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Scopes(database.Live("notifications", false)).
		Where("notifications.user_id = ? AND notifications.is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}
