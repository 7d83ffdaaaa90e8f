package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// FindByID finds a task by ID with its assignee preloaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("tasks", includeDeleted)).
		Preload("Assignee").
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	if filter.ProjectIDs != nil && len(filter.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Task{}).
			Scopes(
				database.Live("tasks", filter.IncludeDeleted),
				database.Search(filter.Search, "tasks.title", "tasks.description", "tasks.task_number"),
			)

		if filter.ProjectIDs != nil {
			query = query.Where("tasks.project_id IN ?", filter.ProjectIDs)
		}
		if filter.ProjectID != nil {
			query = query.Where("tasks.project_id = ?", *filter.ProjectID)
		}
		if filter.ParentTaskID != nil {
			query = query.Where("tasks.parent_task_id = ?", *filter.ParentTaskID)
		} else if filter.TopLevelOnly {
			query = query.Where("tasks.parent_task_id IS NULL")
		}
		if filter.Status != nil {
			query = query.Where("tasks.status = ?", *filter.Status)
		}
		if filter.Priority != nil {
			query = query.Where("tasks.priority = ?", *filter.Priority)
		}
		if filter.AssignedTo != nil {
			query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
		}
		return query
	}

	var (
		tasks []models.Task
		total int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base().Count(&total).Error
	})
	g.Go(func() error {
		return base().
			Preload("Assignee").
			Scopes(database.Window(filter.Offset, filter.Limit)).
			Order("tasks.created_at DESC").
			Order("tasks.id DESC").
			Find(&tasks).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update saves task columns
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// CountLiveChildren counts subtasks of parentID that are not soft-deleted
func (r *GormTaskRepository) CountLiveChildren(ctx context.Context, parentID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Scopes(database.Live("tasks", false)).
		Where("tasks.parent_task_id = ?", parentID).
		Count(&count).Error
	return count, err
}

// AddActualHours adds delta to the task's actual hours without reading it first
func (r *GormTaskRepository) AddActualHours(ctx context.Context, taskID uint64, delta float64) error {
	res := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", taskID).
		UpdateColumn("actual_hours", gorm.Expr("actual_hours + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
