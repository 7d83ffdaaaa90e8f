package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

var ErrNotificationNotFound = apierrors.NotFound("Notification not found.")

// NotificationService serves a user's own inbox.
type NotificationService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

func NewNotificationService(store repository.Store, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: logger.Named("notifications"),
		now:    time.Now,
	}
}

// Inbox is one page of notifications plus the unread badge count.
type Inbox struct {
	Items  []models.Notification
	Total  int64
	Unread int64
}

func (s *NotificationService) List(ctx context.Context, caller authz.Caller, unreadOnly bool, page utils.PaginationParams) (*Inbox, error) {
	now := s.now()
	items, total, err := s.store.Notifications().ListForUser(ctx, caller.UserID, unreadOnly, now, page.Offset, page.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread, err := s.store.Notifications().CountUnread(ctx, caller.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &Inbox{Items: items, Total: total, Unread: unread}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller authz.Caller) (int64, error) {
	count, err := s.store.Notifications().CountUnread(ctx, caller.UserID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// own loads a live notification addressed to the caller. Someone else's
// notification is reported as missing.
func (s *NotificationService) own(ctx context.Context, caller authz.Caller, id uint64) (*models.Notification, error) {
	n, err := s.store.Notifications().FindByID(ctx, id, false)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	if n.UserID != caller.UserID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller authz.Caller, id uint64) (*models.Notification, error) {
	n, err := s.own(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	now := s.now()
	n.Read = true
	n.ReadAt = &now
	if err := s.store.Notifications().Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, caller authz.Caller) (int64, error) {
	n, err := s.store.Notifications().MarkAllRead(ctx, caller.UserID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.logger.Debug("notifications marked read", zap.Uint64("user_id", caller.UserID), zap.Int64("count", n))
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, caller authz.Caller, id uint64) error {
	n, err := s.own(ctx, caller, id)
	if err != nil {
		return err
	}
	n.MarkDeleted(caller.UserID, s.now())
	if err := s.store.Notifications().Update(ctx, n); err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}
