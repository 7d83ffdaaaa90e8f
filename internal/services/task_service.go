package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrTaskHasSubtasks    = apierrors.State("Cannot delete task with subtasks.")
	ErrSubtaskHasChildren = apierrors.State("Cannot delete subtask with nested subtasks.")
	ErrParentDeleted      = apierrors.State("Parent task is deleted or not found.")
	ErrNoTaskFields       = apierrors.Validation("No fields to update.")
)

// TaskService handles tasks, subtasks and the status state machine.
type TaskService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

// NewTaskService creates a new TaskService.
func NewTaskService(store repository.Store, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:  store,
		logger: logger.Named("tasks"),
		now:    time.Now,
	}
}

// TaskPatch is a partial task update. Only non-nil fields are applied and
// authorized. The parent task is fixed at creation and cannot be patched.
type TaskPatch struct {
	Title          *string
	Description    *string
	AssignedTo     *uint64
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	EstimatedHours *float64
	ActualHours    *float64
	StartDate      *time.Time
	EndDate        *time.Time
}

// Fields lists the fields present in the patch.
func (p TaskPatch) Fields() []authz.TaskField {
	var fields []authz.TaskField
	add := func(present bool, f authz.TaskField) {
		if present {
			fields = append(fields, f)
		}
	}
	add(p.Title != nil, authz.FieldTitle)
	add(p.Description != nil, authz.FieldDescription)
	add(p.AssignedTo != nil, authz.FieldAssignedTo)
	add(p.Status != nil, authz.FieldStatus)
	add(p.Priority != nil, authz.FieldPriority)
	add(p.EstimatedHours != nil, authz.FieldEstimatedHours)
	add(p.ActualHours != nil, authz.FieldActualHours)
	add(p.StartDate != nil, authz.FieldStartDate)
	add(p.EndDate != nil, authz.FieldEndDate)
	return fields
}

// TaskNumberPrefix is the upper-cased first three characters of a project title.
func TaskNumberPrefix(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > constants.TaskNumberPrefixLength {
		title = string([]rune(title)[:constants.TaskNumberPrefixLength])
	}
	return strings.ToUpper(title)
}

// CreateTaskInput holds the fields for a new task or subtask.
type CreateTaskInput struct {
	Title          string
	Description    string
	ProjectID      uint64
	AssignedTo     *uint64
	ParentTaskID   *uint64
	Priority       *models.TaskPriority
	EstimatedHours *float64
	StartDate      *time.Time
	EndDate        *time.Time
}

// liveProject loads a non-deleted project.
func (s *TaskService) liveProject(ctx context.Context, id uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupErr(err, "Project")
	}
	return project, nil
}

// checkAssignee requires an active team member who belongs to the project.
func (s *TaskService) checkAssignee(ctx context.Context, project *models.Project, userID uint64) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}
	if err != nil || !authz.IsActive(user) || user.GlobalRole != models.RoleTeamMember {
		return nil, apierrors.Validation("Assigned user must be an active team member.")
	}
	if !project.IsMember(userID) {
		return nil, apierrors.Validation("Assigned user is not a member of this project.")
	}
	return user, nil
}

func checkTaskDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apierrors.Validation("Start date must be before end date.")
	}
	return nil
}

func checkHours(v *float64, label string) error {
	if v != nil && *v < 0 {
		return apierrors.Validation(label + " cannot be negative.")
	}
	return nil
}

// CreateTask creates a top-level task, or a subtask when ParentTaskID is set.
func (s *TaskService) CreateTask(ctx context.Context, caller authz.Caller, input CreateTaskInput) (*models.Task, []notify.Effect, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.ProjectID == 0 {
		return nil, nil, apierrors.Validation("Title and Project ID are required.")
	}

	project, err := s.liveProject(ctx, input.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.AuthorizeTask(caller, project, nil, authz.OpCreate, nil); err != nil {
		return nil, nil, err
	}

	if input.ParentTaskID != nil {
		parent, err := s.store.Tasks().FindByID(ctx, *input.ParentTaskID, false)
		if err != nil {
			return nil, nil, lookupErr(err, "Parent task")
		}
		if parent.ProjectID != project.ID {
			return nil, nil, apierrors.Validation("Parent task must belong to the same project.")
		}
	}
	return s.create(ctx, caller, project, title, input)
}

func (s *TaskService) create(ctx context.Context, caller authz.Caller, project *models.Project, title string, input CreateTaskInput) (*models.Task, []notify.Effect, error) {
	priority := models.TaskPriorityLow
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid priority %q.", *input.Priority))
		}
		priority = *input.Priority
	}
	if err := checkHours(input.EstimatedHours, "Estimated hours"); err != nil {
		return nil, nil, err
	}
	if err := checkTaskDates(input.StartDate, input.EndDate); err != nil {
		return nil, nil, err
	}

	var assignee *models.User
	if input.AssignedTo != nil {
		var err error
		if assignee, err = s.checkAssignee(ctx, project, *input.AssignedTo); err != nil {
			return nil, nil, err
		}
	}

	task := &models.Task{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		ProjectID:      project.ID,
		AssignedTo:     input.AssignedTo,
		ParentTaskID:   input.ParentTaskID,
		Status:         models.TaskStatusPending,
		Priority:       priority,
		EstimatedHours: input.EstimatedHours,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CreatedBy:      caller.UserID,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		seq, err := tx.Projects().NextTaskSeq(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("failed to allocate task number: %w", err)
		}
		task.TaskNumber = fmt.Sprintf("%s-%d", TaskNumberPrefix(project.Title), seq)
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	kind := "task"
	if task.IsSubtask() {
		kind = "subtask"
	}
	metrics.TasksCreated.WithLabelValues(kind).Inc()
	s.logger.Info("task created",
		zap.Uint64("task_id", task.ID),
		zap.String("task_number", task.TaskNumber),
		zap.String("kind", kind),
		zap.Uint64("by", caller.UserID),
	)

	task.Assignee = assignee
	var effects []notify.Effect
	if assignee != nil {
		effects = append(effects, notify.TaskAssigned(assignee, task, project, caller.UserID))
	}
	return task, effects, nil
}

// ListTasksInput filters the task list.
type ListTasksInput struct {
	ProjectID    *uint64
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	AssignedTo   *uint64
	Search       string
	TopLevelOnly bool
	Pagination   utils.PaginationParams
}

// ListTasks lists live tasks in projects the caller can access.
func (s *TaskService) ListTasks(ctx context.Context, caller authz.Caller, input ListTasksInput) ([]models.Task, int64, error) {
	if !caller.Active {
		return nil, 0, apierrors.Forbidden(authz.MsgInactive)
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, 0, apierrors.Validation(fmt.Sprintf("Invalid status %q.", *input.Status))
	}
	if input.Priority != nil && !input.Priority.IsValid() {
		return nil, 0, apierrors.Validation(fmt.Sprintf("Invalid priority %q.", *input.Priority))
	}

	filter := repository.TaskFilter{
		Status:       input.Status,
		Priority:     input.Priority,
		AssignedTo:   input.AssignedTo,
		Search:       input.Search,
		TopLevelOnly: input.TopLevelOnly,
		Offset:       input.Pagination.Offset,
		Limit:        input.Pagination.Limit,
	}

	if input.ProjectID != nil {
		project, err := s.liveProject(ctx, *input.ProjectID)
		if err != nil {
			return nil, 0, err
		}
		if err := authz.CanReadProject(caller, project); err != nil {
			return nil, 0, err
		}
		filter.ProjectID = input.ProjectID
	} else if !authz.IsAdmin(caller) {
		ids, err := s.store.Projects().AccessibleIDs(ctx, caller.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve accessible projects: %w", err)
		}
		filter.ProjectIDs = ids
	}

	tasks, total, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// loadTask returns a task with its project. The project must be live.
func (s *TaskService) loadTask(ctx context.Context, id uint64, includeDeleted bool, what string) (*models.Task, *models.Project, error) {
	task, err := s.store.Tasks().FindByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, nil, lookupErr(err, what)
	}
	project, err := s.liveProject(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

// loadSubtask resolves a live parent and one of its children.
func (s *TaskService) loadSubtask(ctx context.Context, parentID, subtaskID uint64, includeDeleted bool) (*models.Task, *models.Task, *models.Project, error) {
	parent, project, err := s.loadTask(ctx, parentID, false, "Parent task")
	if err != nil {
		return nil, nil, nil, err
	}
	sub, err := s.store.Tasks().FindByID(ctx, subtaskID, includeDeleted)
	if err != nil {
		return nil, nil, nil, lookupErr(err, "Subtask")
	}
	if sub.ParentTaskID == nil || *sub.ParentTaskID != parent.ID {
		return nil, nil, nil, apierrors.NotFound("Subtask not found.")
	}
	return parent, sub, project, nil
}

func (s *TaskService) GetTask(ctx context.Context, caller authz.Caller, id uint64) (*models.Task, error) {
	task, project, err := s.loadTask(ctx, id, false, "Task")
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeTask(caller, project, task, authz.OpRead, nil); err != nil {
		return nil, err
	}
	task.Project = *project
	return task, nil
}

// UpdateTask applies a patch. A status change is validated against the state machine.
func (s *TaskService) UpdateTask(ctx context.Context, caller authz.Caller, id uint64, patch TaskPatch) (*models.Task, []notify.Effect, error) {
	task, project, err := s.loadTask(ctx, id, false, "Task")
	if err != nil {
		return nil, nil, err
	}
	return s.update(ctx, caller, project, task, patch)
}

func (s *TaskService) update(ctx context.Context, caller authz.Caller, project *models.Project, task *models.Task, patch TaskPatch) (*models.Task, []notify.Effect, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, nil, ErrNoTaskFields
	}
	if err := authz.AuthorizeTask(caller, project, task, authz.OpUpdate, fields); err != nil {
		return nil, nil, err
	}

	from := task.Status
	if patch.Status != nil {
		next := *patch.Status
		if !next.IsValid() {
			return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid status %q.", next))
		}
		if !from.CanTransitionTo(next) {
			return nil, nil, apierrors.State(models.InvalidTransitionMessage(from, next))
		}
	}

	var assignee *models.User
	if patch.AssignedTo != nil && !task.IsAssignedTo(*patch.AssignedTo) {
		var err error
		if assignee, err = s.checkAssignee(ctx, project, *patch.AssignedTo); err != nil {
			return nil, nil, err
		}
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, nil, apierrors.Validation("Title is required.")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid priority %q.", *patch.Priority))
		}
		task.Priority = *patch.Priority
	}
	if err := checkHours(patch.EstimatedHours, "Estimated hours"); err != nil {
		return nil, nil, err
	}
	if err := checkHours(patch.ActualHours, "Actual hours"); err != nil {
		return nil, nil, err
	}
	if patch.EstimatedHours != nil {
		task.EstimatedHours = patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		task.ActualHours = *patch.ActualHours
	}
	if patch.StartDate != nil {
		task.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		task.EndDate = patch.EndDate
	}
	if err := checkTaskDates(task.StartDate, task.EndDate); err != nil {
		return nil, nil, err
	}
	if assignee != nil {
		task.AssignedTo = &assignee.ID
		task.Assignee = assignee
	}
	if patch.Status != nil {
		task.ApplyStatus(*patch.Status, s.now())
	}

	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return nil, nil, fmt.Errorf("failed to update task: %w", err)
	}

	if task.Status != from {
		metrics.TaskTransitions.WithLabelValues(string(from), string(task.Status)).Inc()
	}
	s.logger.Info("task updated",
		zap.Uint64("task_id", task.ID),
		zap.String("status", string(task.Status)),
		zap.Int("fields", len(fields)),
		zap.Uint64("by", caller.UserID),
	)

	var effects []notify.Effect
	if assignee != nil {
		effects = append(effects, notify.TaskAssigned(assignee, task, project, caller.UserID))
	}
	return task, effects, nil
}

// DeleteTask soft-deletes a task that has no live subtasks.
func (s *TaskService) DeleteTask(ctx context.Context, caller authz.Caller, id uint64) error {
	task, project, err := s.loadTask(ctx, id, false, "Task")
	if err != nil {
		return err
	}
	return s.delete(ctx, caller, project, task, ErrTaskHasSubtasks)
}

func (s *TaskService) delete(ctx context.Context, caller authz.Caller, project *models.Project, task *models.Task, blocked error) error {
	if err := authz.AuthorizeTask(caller, project, task, authz.OpDelete, nil); err != nil {
		return err
	}

	children, err := s.store.Tasks().CountLiveChildren(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("failed to count subtasks: %w", err)
	}
	if children > 0 {
		return blocked
	}

	task.MarkDeleted(caller.UserID, s.now())
	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("task deleted", zap.Uint64("task_id", task.ID), zap.Uint64("by", caller.UserID))
	return nil
}

// RestoreTask un-deletes a task whose parent, if any, is live.
func (s *TaskService) RestoreTask(ctx context.Context, caller authz.Caller, id uint64) (*models.Task, error) {
	task, project, err := s.loadTask(ctx, id, true, "Task")
	if err != nil {
		return nil, err
	}
	if !task.IsDeleted {
		return nil, apierrors.NotFound("Deleted task not found.")
	}
	return s.restore(ctx, caller, project, task)
}

func (s *TaskService) restore(ctx context.Context, caller authz.Caller, project *models.Project, task *models.Task) (*models.Task, error) {
	if err := authz.AuthorizeTask(caller, project, task, authz.OpRestore, nil); err != nil {
		return nil, err
	}

	if task.ParentTaskID != nil {
		if _, err := s.store.Tasks().FindByID(ctx, *task.ParentTaskID, false); err != nil {
			if isNotFound(err) {
				return nil, ErrParentDeleted
			}
			return nil, fmt.Errorf("failed to find parent task: %w", err)
		}
	}

	task.Restore()
	if err := s.store.Tasks().Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to restore task: %w", err)
	}
	s.logger.Info("task restored", zap.Uint64("task_id", task.ID), zap.Uint64("by", caller.UserID))
	return task, nil
}

// CreateSubtask creates a child of parentID in the parent's project.
// The assignee defaults to the parent's assignee.
func (s *TaskService) CreateSubtask(ctx context.Context, caller authz.Caller, parentID uint64, input CreateTaskInput) (*models.Task, []notify.Effect, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, apierrors.Validation("Title is required.")
	}

	parent, project, err := s.loadTask(ctx, parentID, false, "Parent task")
	if err != nil {
		return nil, nil, err
	}
	if err := authz.AuthorizeTask(caller, project, nil, authz.OpCreate, nil); err != nil {
		return nil, nil, err
	}

	input.ProjectID = project.ID
	input.ParentTaskID = &parent.ID
	if input.AssignedTo == nil {
		input.AssignedTo = parent.AssignedTo
	}
	return s.create(ctx, caller, project, title, input)
}

// ListSubtasks returns the live children of a parent task, newest first.
func (s *TaskService) ListSubtasks(ctx context.Context, caller authz.Caller, parentID uint64) ([]models.Task, error) {
	parent, project, err := s.loadTask(ctx, parentID, false, "Parent task")
	if err != nil {
		return nil, err
	}
	if err := authz.CanReadProject(caller, project); err != nil {
		return nil, err
	}

	tasks, _, err := s.store.Tasks().List(ctx, repository.TaskFilter{ParentTaskID: &parent.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetSubtask(ctx context.Context, caller authz.Caller, parentID, subtaskID uint64) (*models.Task, error) {
	parent, sub, project, err := s.loadSubtask(ctx, parentID, subtaskID, false)
	if err != nil {
		return nil, err
	}
	if err := authz.CanReadProject(caller, project); err != nil {
		return nil, err
	}
	sub.Parent = parent
	return sub, nil
}

func (s *TaskService) UpdateSubtask(ctx context.Context, caller authz.Caller, parentID, subtaskID uint64, patch TaskPatch) (*models.Task, []notify.Effect, error) {
	_, sub, project, err := s.loadSubtask(ctx, parentID, subtaskID, false)
	if err != nil {
		return nil, nil, err
	}
	return s.update(ctx, caller, project, sub, patch)
}

func (s *TaskService) DeleteSubtask(ctx context.Context, caller authz.Caller, parentID, subtaskID uint64) error {
	_, sub, project, err := s.loadSubtask(ctx, parentID, subtaskID, false)
	if err != nil {
		return err
	}
	return s.delete(ctx, caller, project, sub, ErrSubtaskHasChildren)
}

func (s *TaskService) RestoreSubtask(ctx context.Context, caller authz.Caller, parentID, subtaskID uint64) (*models.Task, error) {
	_, sub, project, err := s.loadSubtask(ctx, parentID, subtaskID, true)
	if err != nil {
		return nil, err
	}
	if !sub.IsDeleted {
		return nil, apierrors.NotFound("Deleted subtask not found.")
	}
	return s.restore(ctx, caller, project, sub)
}
