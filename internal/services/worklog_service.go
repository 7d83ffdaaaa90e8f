package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrHoursRange     = apierrors.Validation("Hours must be between 0.25 and 24.")
	ErrFutureDate     = apierrors.Validation("Date cannot be in the future.")
	ErrWorklogFields  = apierrors.Validation("All fields are required.")
	ErrNoWorklogField = apierrors.Validation("No fields to update.")
)

// WorklogService records time against tasks and keeps task.actual_hours and
// the overtime flag in step with every write.
type WorklogService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

// NewWorklogService creates a new WorklogService.
func NewWorklogService(store repository.Store, logger *zap.Logger) *WorklogService {
	return &WorklogService{
		store:  store,
		logger: logger.Named("worklogs"),
		now:    time.Now,
	}
}

func validHours(h float64) error {
	if h < constants.MinWorklogHours || h > constants.MaxWorklogHours {
		return ErrHoursRange
	}
	return nil
}

func (s *WorklogService) validDate(d time.Time) error {
	if d.After(s.now()) {
		return ErrFutureDate
	}
	return nil
}

func validDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	n := utf8.RuneCountInString(desc)
	if n < constants.MinWorklogDescLength || n > constants.MaxWorklogDescLength {
		return "", apierrors.Validation(fmt.Sprintf("Description must be between %d and %d characters.",
			constants.MinWorklogDescLength, constants.MaxWorklogDescLength))
	}
	return desc, nil
}

// isOvertime sums the user's other live hours on the calendar day of date and
// reports whether adding hours crosses the daily threshold.
func (s *WorklogService) isOvertime(ctx context.Context, tx repository.Store, userID uint64, date time.Time, hours float64, excludeID uint64) (bool, error) {
	from, to := models.DayBounds(date)
	sum, err := tx.Worklogs().SumHours(ctx, userID, from, to, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to sum daily hours: %w", err)
	}
	return sum+hours > constants.DailyHoursThreshold, nil
}

// CreateWorklogInput holds the fields of a new worklog.
type CreateWorklogInput struct {
	TaskID      uint64
	Date        time.Time
	Hours       float64
	Description string
}

// CreateWorklog logs the caller's hours against a task.
func (s *WorklogService) CreateWorklog(ctx context.Context, caller authz.Caller, input CreateWorklogInput) (*models.Worklog, error) {
	if input.TaskID == 0 || input.Date.IsZero() || input.Hours == 0 || strings.TrimSpace(input.Description) == "" {
		return nil, ErrWorklogFields
	}
	if err := validHours(input.Hours); err != nil {
		return nil, err
	}
	if err := s.validDate(input.Date); err != nil {
		return nil, err
	}
	desc, err := validDescription(input.Description)
	if err != nil {
		return nil, err
	}

	task, err := s.store.Tasks().FindByID(ctx, input.TaskID, false)
	if err != nil {
		return nil, lookupErr(err, "Task")
	}
	project, err := s.store.Projects().FindByID(ctx, task.ProjectID, false)
	if err != nil {
		return nil, lookupErr(err, "Project")
	}
	if err := authz.AuthorizeWorklogCreate(caller, project, task); err != nil {
		return nil, err
	}

	worklog := &models.Worklog{
		TaskID:      task.ID,
		UserID:      caller.UserID,
		Date:        input.Date,
		Hours:       input.Hours,
		Description: desc,
		CreatedBy:   caller.UserID,
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		overtime, err := s.isOvertime(ctx, tx, worklog.UserID, worklog.Date, worklog.Hours, 0)
		if err != nil {
			return err
		}
		worklog.IsOvertime = overtime
		if err := tx.Worklogs().Create(ctx, worklog); err != nil {
			return fmt.Errorf("failed to create worklog: %w", err)
		}
		if err := tx.Tasks().AddActualHours(ctx, task.ID, worklog.Hours); err != nil {
			return fmt.Errorf("failed to update task hours: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WorklogHours.Add(worklog.Hours)
	if worklog.IsOvertime {
		metrics.OvertimeWorklogs.Inc()
	}
	s.logger.Info("worklog created",
		zap.Uint64("worklog_id", worklog.ID),
		zap.Uint64("task_id", task.ID),
		zap.Float64("hours", worklog.Hours),
		zap.Bool("overtime", worklog.IsOvertime),
	)

	task.ActualHours += worklog.Hours
	worklog.Task = *task
	return worklog, nil
}

// loadWorklog returns a worklog and the project of its task. The project may be deleted.
func (s *WorklogService) loadWorklog(ctx context.Context, id uint64, includeDeleted bool) (*models.Worklog, *models.Project, error) {
	worklog, err := s.store.Worklogs().FindByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, nil, lookupErr(err, "Worklog")
	}
	project, err := s.store.Projects().FindByID(ctx, worklog.Task.ProjectID, true)
	if err != nil {
		return nil, nil, lookupErr(err, "Project")
	}
	return worklog, project, nil
}

func (s *WorklogService) GetWorklog(ctx context.Context, caller authz.Caller, id uint64) (*models.Worklog, error) {
	worklog, project, err := s.loadWorklog(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeWorklog(caller, project, worklog, authz.OpRead, s.now()); err != nil {
		return nil, err
	}
	return worklog, nil
}

// UpdateWorklogInput is a partial worklog update.
type UpdateWorklogInput struct {
	Date        *time.Time
	Hours       *float64
	Description *string
}

// UpdateWorklog applies the change and moves the task total by the hour difference.
// Overtime is recomputed, excluding this entry, when the date or hours change.
func (s *WorklogService) UpdateWorklog(ctx context.Context, caller authz.Caller, id uint64, input UpdateWorklogInput) (*models.Worklog, error) {
	if input.Date == nil && input.Hours == nil && input.Description == nil {
		return nil, ErrNoWorklogField
	}

	worklog, project, err := s.loadWorklog(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeWorklog(caller, project, worklog, authz.OpUpdate, s.now()); err != nil {
		return nil, err
	}

	if input.Date != nil {
		if err := s.validDate(*input.Date); err != nil {
			return nil, err
		}
		worklog.Date = *input.Date
	}
	delta := 0.0
	if input.Hours != nil {
		if err := validHours(*input.Hours); err != nil {
			return nil, err
		}
		delta = *input.Hours - worklog.Hours
		worklog.Hours = *input.Hours
	}
	if input.Description != nil {
		desc, err := validDescription(*input.Description)
		if err != nil {
			return nil, err
		}
		worklog.Description = desc
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if input.Date != nil || input.Hours != nil {
			overtime, err := s.isOvertime(ctx, tx, worklog.UserID, worklog.Date, worklog.Hours, worklog.ID)
			if err != nil {
				return err
			}
			worklog.IsOvertime = overtime
		}
		if err := tx.Worklogs().Update(ctx, worklog); err != nil {
			return fmt.Errorf("failed to update worklog: %w", err)
		}
		if delta != 0 {
			if err := tx.Tasks().AddActualHours(ctx, worklog.TaskID, delta); err != nil {
				return fmt.Errorf("failed to update task hours: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worklog updated",
		zap.Uint64("worklog_id", worklog.ID),
		zap.Float64("delta", delta),
		zap.Bool("overtime", worklog.IsOvertime),
		zap.Uint64("by", caller.UserID),
	)
	worklog.Task.ActualHours += delta
	return worklog, nil
}

// DeleteWorklog soft-deletes the entry and takes its hours off the task.
func (s *WorklogService) DeleteWorklog(ctx context.Context, caller authz.Caller, id uint64) error {
	worklog, project, err := s.loadWorklog(ctx, id, false)
	if err != nil {
		return err
	}
	if err := authz.AuthorizeWorklog(caller, project, worklog, authz.OpDelete, s.now()); err != nil {
		return err
	}

	worklog.MarkDeleted(caller.UserID, s.now())
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Worklogs().Update(ctx, worklog); err != nil {
			return fmt.Errorf("failed to delete worklog: %w", err)
		}
		if err := tx.Tasks().AddActualHours(ctx, worklog.TaskID, -worklog.Hours); err != nil {
			return fmt.Errorf("failed to update task hours: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("worklog deleted", zap.Uint64("worklog_id", worklog.ID), zap.Uint64("by", caller.UserID))
	return nil
}

// RestoreWorklog un-deletes the entry, adds its hours back to the task and
// re-evaluates overtime against the day as it stands now.
func (s *WorklogService) RestoreWorklog(ctx context.Context, caller authz.Caller, id uint64) (*models.Worklog, error) {
	worklog, project, err := s.loadWorklog(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !worklog.IsDeleted {
		return nil, apierrors.NotFound("Deleted worklog not found.")
	}
	if err := authz.AuthorizeWorklog(caller, project, worklog, authz.OpRestore, s.now()); err != nil {
		return nil, err
	}

	worklog.Restore()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		overtime, err := s.isOvertime(ctx, tx, worklog.UserID, worklog.Date, worklog.Hours, worklog.ID)
		if err != nil {
			return err
		}
		worklog.IsOvertime = overtime
		if err := tx.Worklogs().Update(ctx, worklog); err != nil {
			return fmt.Errorf("failed to restore worklog: %w", err)
		}
		if err := tx.Tasks().AddActualHours(ctx, worklog.TaskID, worklog.Hours); err != nil {
			return fmt.Errorf("failed to update task hours: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("worklog restored", zap.Uint64("worklog_id", worklog.ID), zap.Uint64("by", caller.UserID))
	worklog.Task.ActualHours += worklog.Hours
	return worklog, nil
}

// WorklogQuery filters worklog listings and summaries.
type WorklogQuery struct {
	UserID       *uint64
	TaskID       *uint64
	ProjectID    *uint64
	StartDate    *time.Time
	EndDate      *time.Time
	OvertimeOnly bool
}

// scope narrows a filter to what the caller may see: team members their own
// entries, project managers entries under projects they lead, admins everything.
func (s *WorklogService) scope(ctx context.Context, caller authz.Caller, q WorklogQuery) (repository.WorklogFilter, error) {
	filter := repository.WorklogFilter{
		UserID:       q.UserID,
		TaskID:       q.TaskID,
		OvertimeOnly: q.OvertimeOnly,
	}
	if !caller.Active {
		return filter, apierrors.Forbidden(authz.MsgInactive)
	}
	if q.StartDate != nil {
		from, _ := models.DayBounds(*q.StartDate)
		filter.StartDate = &from
	}
	if q.EndDate != nil {
		_, next := models.DayBounds(*q.EndDate)
		end := next.Add(-time.Nanosecond)
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, apierrors.Validation("Start date must be before end date.")
	}

	switch caller.Role {
	case models.RoleTeamMember:
		filter.ScopeUserID = &caller.UserID
	case models.RoleProjectManager:
		ids, err := s.store.Projects().LedIDs(ctx, caller.UserID)
		if err != nil {
			return filter, fmt.Errorf("failed to resolve led projects: %w", err)
		}
		filter.ScopeProjectIDs = ids
	}

	if q.ProjectID != nil {
		project, err := s.store.Projects().FindByID(ctx, *q.ProjectID, true)
		if err != nil {
			return filter, lookupErr(err, "Project")
		}
		if !authz.HasProjectAccess(caller, project) {
			return filter, apierrors.Forbidden("Access denied to this project.")
		}
		filter.ProjectID = q.ProjectID
	}
	return filter, nil
}

// ListWorklogs lists the entries visible to the caller, newest date first.
func (s *WorklogService) ListWorklogs(ctx context.Context, caller authz.Caller, q WorklogQuery, page utils.PaginationParams) ([]models.Worklog, int64, error) {
	filter, err := s.scope(ctx, caller, q)
	if err != nil {
		return nil, 0, err
	}
	filter.Offset = page.Offset
	filter.Limit = page.Limit

	worklogs, total, err := s.store.Worklogs().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list worklogs: %w", err)
	}
	return worklogs, total, nil
}

// HoursBreakdown is the shared set of figures for a summary group and the overall row.
type HoursBreakdown struct {
	TotalHours         float64
	RegularHours       float64
	OvertimeHours      float64
	WorklogCount       int64
	AvgHoursPerLog     float64
	OvertimePercentage float64
}

type SummaryGroupRow struct {
	Key   string
	Label string
	Extra string
	HoursBreakdown
}

type WorklogSummary struct {
	GroupBy repository.SummaryGroup
	Groups  []SummaryGroupRow
	Overall HoursBreakdown
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func breakdown(total, overtime float64, count int64) HoursBreakdown {
	b := HoursBreakdown{
		TotalHours:    round2(total),
		RegularHours:  round2(total - overtime),
		OvertimeHours: round2(overtime),
		WorklogCount:  count,
	}
	if count > 0 {
		b.AvgHoursPerLog = round2(total / float64(count))
	}
	if total > 0 {
		b.OvertimePercentage = round2(overtime / total * 100)
	}
	return b
}

// Summary aggregates the visible worklogs by user, task, project or date.
func (s *WorklogService) Summary(ctx context.Context, caller authz.Caller, q WorklogQuery, groupBy repository.SummaryGroup) (*WorklogSummary, error) {
	if groupBy == "" {
		groupBy = repository.GroupByUser
	}
	if !groupBy.IsValid() {
		return nil, apierrors.Validation(fmt.Sprintf("Invalid groupBy %q.", groupBy))
	}
	filter, err := s.scope(ctx, caller, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Worklogs().Summarize(ctx, filter, groupBy)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize worklogs: %w", err)
	}

	summary := &WorklogSummary{GroupBy: groupBy, Groups: make([]SummaryGroupRow, 0, len(rows))}
	var (
		total, overtime float64
		count           int64
	)
	for _, r := range rows {
		summary.Groups = append(summary.Groups, SummaryGroupRow{
			Key:            r.Key,
			Label:          r.Label,
			Extra:          r.Extra,
			HoursBreakdown: breakdown(r.TotalHours, r.OvertimeHours, r.WorklogCount),
		})
		total += r.TotalHours
		overtime += r.OvertimeHours
		count += r.WorklogCount
	}
	summary.Overall = breakdown(total, overtime, count)
	return summary, nil
}
