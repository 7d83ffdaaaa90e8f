package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore bundles the GORM repositories over one connection or transaction
type GormStore struct {
	db            *gorm.DB
	users         UserRepository
	projects      ProjectRepository
	tasks         TaskRepository
	worklogs      WorklogRepository
	notifications NotificationRepository
}

// NewStore creates a Store backed by db
func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:            db,
		users:         NewUserRepository(db),
		projects:      NewProjectRepository(db),
		tasks:         NewTaskRepository(db),
		worklogs:      NewWorklogRepository(db),
		notifications: NewNotificationRepository(db),
	}
}

func (s *GormStore) Users() UserRepository                 { return s.users }
func (s *GormStore) Projects() ProjectRepository           { return s.projects }
func (s *GormStore) Tasks() TaskRepository                 { return s.tasks }
func (s *GormStore) Worklogs() WorklogRepository           { return s.worklogs }
func (s *GormStore) Notifications() NotificationRepository { return s.notifications }

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying connection for health checks
func (s *GormStore) DB() *gorm.DB {
	return s.db
}
