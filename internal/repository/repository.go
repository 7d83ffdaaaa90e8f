package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// Every Find/List method takes an explicit includeDeleted flag. Soft-deleted rows
// are never returned unless the caller asks for them.

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.User, error)
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uint64, includeDeleted bool) ([]models.User, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)

	// ListAssignments returns the live projects a user belongs to, with the project preloaded.
	ListAssignments(ctx context.Context, userID uint64) ([]models.ProjectMember, error)

	// ReplaceOTP drops every OTP of the same purpose for the user and stores otp.
	ReplaceOTP(ctx context.Context, otp *models.OTPRequest) error
	// FindPendingOTP returns the newest unused, unexpired OTP.
	FindPendingOTP(ctx context.Context, userID uint64, purpose models.OTPPurpose, now time.Time) (*models.OTPRequest, error)
	// FindVerifiedOTP returns the newest used OTP whose usedAt is at or after since.
	FindVerifiedOTP(ctx context.Context, userID uint64, purpose models.OTPPurpose, since time.Time) (*models.OTPRequest, error)
	UpdateOTP(ctx context.Context, otp *models.OTPRequest) error
	DeleteOTPs(ctx context.Context, userID uint64, purpose models.OTPPurpose) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role           *models.GlobalRole
	Search         string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create inserts the project and its member rows.
	Create(ctx context.Context, project *models.Project) error

	// FindByID loads the project with leader and members preloaded.
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Project, error)

	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)

	// Update saves project columns only; members are managed separately.
	Update(ctx context.Context, project *models.Project) error

	ReplaceMembers(ctx context.Context, projectID uint64, members []models.ProjectMember) error
	UpsertMember(ctx context.Context, member *models.ProjectMember) error

	// NextTaskSeq atomically increments and returns the project's task counter.
	NextTaskSeq(ctx context.Context, projectID uint64) (int64, error)

	// AccessibleIDs returns live project ids the user leads or belongs to.
	AccessibleIDs(ctx context.Context, userID uint64) ([]uint64, error)
	// LedIDs returns project ids (deleted included) led by the user.
	LedIDs(ctx context.Context, userID uint64) ([]uint64, error)

	CountByStatus(ctx context.Context, projectIDs []uint64) (map[models.ProjectStatus]int64, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	// IDs restricts the result; nil means no restriction.
	IDs            []uint64
	Status         *models.ProjectStatus
	Search         string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	Update(ctx context.Context, task *models.Task) error

	// CountLiveChildren counts non-deleted tasks whose parent is parentID.
	CountLiveChildren(ctx context.Context, parentID uint64) (int64, error)

	// AddActualHours applies delta to actual_hours in a single UPDATE.
	AddActualHours(ctx context.Context, taskID uint64, delta float64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// ProjectIDs restricts the result; nil means no restriction.
	ProjectIDs     []uint64
	ProjectID      *uint64
	ParentTaskID   *uint64
	TopLevelOnly   bool
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedTo     *uint64
	Search         string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// WorklogRepository defines the interface for worklog data access
type WorklogRepository interface {
	Create(ctx context.Context, worklog *models.Worklog) error
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Worklog, error)
	List(ctx context.Context, filter WorklogFilter) ([]models.Worklog, int64, error)
	Update(ctx context.Context, worklog *models.Worklog) error

	// SumHours totals the user's live worklog hours in [from, to), skipping excludeID.
	SumHours(ctx context.Context, userID uint64, from, to time.Time, excludeID uint64) (float64, error)

	Summarize(ctx context.Context, filter WorklogFilter, groupBy SummaryGroup) ([]SummaryRow, error)
}

// WorklogFilter holds filtering and scoping options for worklog queries.
type WorklogFilter struct {
	// ScopeUserID limits rows to one user's entries (team member scope).
	ScopeUserID *uint64
	// ScopeProjectIDs limits rows to tasks of these projects; nil means no restriction.
	ScopeProjectIDs []uint64

	UserID       *uint64
	TaskID       *uint64
	ProjectID    *uint64
	StartDate    *time.Time
	EndDate      *time.Time
	OvertimeOnly bool

	IncludeDeleted bool
	Offset         int
	Limit          int
}

type SummaryGroup string

const (
	GroupByUser    SummaryGroup = "user"
	GroupByTask    SummaryGroup = "task"
	GroupByProject SummaryGroup = "project"
	GroupByDate    SummaryGroup = "date"
)

func (g SummaryGroup) IsValid() bool {
	switch g {
	case GroupByUser, GroupByTask, GroupByProject, GroupByDate:
		return true
	}
	return false
}

// SummaryRow is one aggregated group. Key and Label depend on the grouping.
type SummaryRow struct {
	Key           string
	Label         string
	Extra         string
	TotalHours    float64
	OvertimeHours float64
	WorklogCount  int64
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uint64, unreadOnly bool, now time.Time, offset, limit int) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint64, now time.Time) (int64, error)
	Update(ctx context.Context, n *models.Notification) error
	MarkAllRead(ctx context.Context, userID uint64, at time.Time) (int64, error)
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Worklogs() WorklogRepository
	Notifications() NotificationRepository

	// Transaction runs fn against a Store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
