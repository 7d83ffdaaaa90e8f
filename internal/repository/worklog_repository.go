package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWorklogRepository is a GORM implementation of WorklogRepository
type GormWorklogRepository struct {
	db *gorm.DB
}

// NewWorklogRepository creates a new WorklogRepository
func NewWorklogRepository(db *gorm.DB) WorklogRepository {
	return &GormWorklogRepository{db: db}
}

// Create creates a new worklog
func (r *GormWorklogRepository) Create(ctx context.Context, worklog *models.Worklog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(worklog).Error
}

// FindByID finds a worklog by ID with task and user preloaded
func (r *GormWorklogRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Worklog, error) {
	var worklog models.Worklog
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("worklogs", includeDeleted)).
		Preload("Task").
		Preload("User").
		First(&worklog, id).Error; err != nil {
		return nil, err
	}
	return &worklog, nil
}

// scoped applies the filter to a worklog query joined with its task.
func (r *GormWorklogRepository) scoped(ctx context.Context, filter WorklogFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Worklog{}).
		Joins("JOIN tasks ON tasks.id = worklogs.task_id").
		Scopes(database.Live("worklogs", filter.IncludeDeleted))

	if filter.ScopeUserID != nil {
		query = query.Where("worklogs.user_id = ?", *filter.ScopeUserID)
	}
	if filter.ScopeProjectIDs != nil {
		query = query.Where("tasks.project_id IN ?", filter.ScopeProjectIDs)
	}
	if filter.UserID != nil {
		query = query.Where("worklogs.user_id = ?", *filter.UserID)
	}
	if filter.TaskID != nil {
		query = query.Where("worklogs.task_id = ?", *filter.TaskID)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.StartDate != nil {
		query = query.Where("worklogs.date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("worklogs.date <= ?", *filter.EndDate)
	}
	if filter.OvertimeOnly {
		query = query.Where("worklogs.is_overtime = ?", true)
	}
	return query
}

func emptyScope(filter WorklogFilter) bool {
	return filter.ScopeProjectIDs != nil && len(filter.ScopeProjectIDs) == 0
}

// List retrieves worklogs with filtering and pagination, newest date first
func (r *GormWorklogRepository) List(ctx context.Context, filter WorklogFilter) ([]models.Worklog, int64, error) {
	if emptyScope(filter) {
		return []models.Worklog{}, 0, nil
	}

	var (
		worklogs []models.Worklog
		total    int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.scoped(ctx, filter).Count(&total).Error
	})
	g.Go(func() error {
		return r.scoped(ctx, filter).
			Preload("Task").
			Preload("User").
			Scopes(database.Window(filter.Offset, filter.Limit)).
			Order("worklogs.date DESC").
			Order("worklogs.id DESC").
			Find(&worklogs).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return worklogs, total, nil
}

// Update saves worklog columns
func (r *GormWorklogRepository) Update(ctx context.Context, worklog *models.Worklog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(worklog).Error
}

// SumHours totals the user's live hours in [from, to), skipping excludeID
func (r *GormWorklogRepository) SumHours(ctx context.Context, userID uint64, from, to time.Time, excludeID uint64) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Worklog{}).
		Scopes(database.Live("worklogs", false)).
		Where("worklogs.user_id = ? AND worklogs.date >= ? AND worklogs.date < ?", userID, from, to).
		Where("worklogs.id <> ?", excludeID).
		Select("COALESCE(SUM(worklogs.hours), 0)").
		Scan(&total).Error
	return total, err
}

type summaryScan struct {
	GroupKey      string
	Label         string
	Label2        string
	Extra         string
	TotalHours    float64
	OvertimeHours float64
	WorklogCount  int64
}

const summaryAggregates = "SUM(worklogs.hours) AS total_hours, " +
	"SUM(CASE WHEN worklogs.is_overtime THEN worklogs.hours ELSE 0 END) AS overtime_hours, " +
	"COUNT(worklogs.id) AS worklog_count"

// Summarize aggregates hours per group, largest total first
func (r *GormWorklogRepository) Summarize(ctx context.Context, filter WorklogFilter, groupBy SummaryGroup) ([]SummaryRow, error) {
	if emptyScope(filter) {
		return []SummaryRow{}, nil
	}

	query := r.scoped(ctx, filter)
	var (
		columns string
		group   string
	)
	switch groupBy {
	case GroupByUser:
		query = query.Joins("JOIN users ON users.id = worklogs.user_id")
		columns = "worklogs.user_id AS group_key, users.fname AS label, users.lname AS label2, users.email AS extra"
		group = "worklogs.user_id, users.fname, users.lname, users.email"
	case GroupByTask:
		query = query.Joins("JOIN projects ON projects.id = tasks.project_id")
		columns = "tasks.id AS group_key, tasks.title AS label, tasks.task_number AS label2, projects.title AS extra"
		group = "tasks.id, tasks.title, tasks.task_number, projects.title"
	case GroupByProject:
		query = query.Joins("JOIN projects ON projects.id = tasks.project_id")
		columns = "projects.id AS group_key, projects.title AS label, '' AS label2, projects.status AS extra"
		group = "projects.id, projects.title, projects.status"
	case GroupByDate:
		columns = "DATE(worklogs.date) AS group_key, DATE(worklogs.date) AS label, '' AS label2, '' AS extra"
		group = "DATE(worklogs.date)"
	default:
		return nil, fmt.Errorf("unsupported summary grouping %q", groupBy)
	}

	var scans []summaryScan
	if err := query.
		Select(columns + ", " + summaryAggregates).
		Group(group).
		Order("total_hours DESC").
		Scan(&scans).Error; err != nil {
		return nil, err
	}

	rows := make([]SummaryRow, 0, len(scans))
	for _, s := range scans {
		row := SummaryRow{
			Key:           s.GroupKey,
			Label:         s.Label,
			Extra:         s.Extra,
			TotalHours:    s.TotalHours,
			OvertimeHours: s.OvertimeHours,
			WorklogCount:  s.WorklogCount,
		}
		switch groupBy {
		case GroupByUser:
			row.Label = strings.TrimSpace(s.Label + " " + s.Label2)
		case GroupByTask:
			row.Label = s.Label2 + " " + s.Label
		case GroupByDate:
			row.Key = dayKey(s.GroupKey)
			row.Label = row.Key
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dayKey trims driver-specific DATE() output down to YYYY-MM-DD.
func dayKey(v string) string {
	if len(v) >= 10 {
		return v[:10]
	}
	return v
}
