// Package authz decides who may do what to projects, tasks and worklogs.
//
// Every function is pure: callers pass in the already loaded project, task or
// worklog and get back nil (permit) or a forbidden error (deny). Decisions are
// made before any write starts.
package authz

import (
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

// Caller is the resolved identity of whoever issued a request.
type Caller struct {
	UserID uint64
	Role   models.GlobalRole
	Active bool
}

func CallerFromUser(u *models.User) Caller {
	return Caller{UserID: u.ID, Role: u.GlobalRole, Active: IsActive(u)}
}

type Operation string

const (
	OpCreate  Operation = "create"
	OpRead    Operation = "read"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpRestore Operation = "restore"
)

// TaskField names a patchable task attribute.
type TaskField string

const (
	FieldTitle          TaskField = "title"
	FieldDescription    TaskField = "description"
	FieldAssignedTo     TaskField = "assignedTo"
	FieldStatus         TaskField = "status"
	FieldPriority       TaskField = "priority"
	FieldEstimatedHours TaskField = "estimatedHours"
	FieldActualHours    TaskField = "actualHours"
	FieldStartDate      TaskField = "startDate"
	FieldEndDate        TaskField = "endDate"
)

// assigneeFields is what a plain assignee may change.
var assigneeFields = map[TaskField]struct{}{
	FieldStatus:      {},
	FieldActualHours: {},
}

const (
	MsgRestrictedFields  = "You can only update status and actual hours."
	MsgNotAssigned       = "You are not assigned to this task."
	MsgNotProjectManager = "You don't manage this project."
	MsgDeleteWindow      = "Can only delete worklog within 24 hours of creation"
	MsgInactive          = "Your account is inactive."
)

func IsAdmin(c Caller) bool {
	return c.Role == models.RoleAdmin
}

// IsActive is false for deleted or deactivated accounts.
func IsActive(u *models.User) bool {
	return u != nil && !u.IsDeleted && u.IsActive
}

// HasProjectAccess requires p.Members to be loaded.
func HasProjectAccess(c Caller, p *models.Project) bool {
	if !c.Active {
		return false
	}
	return IsAdmin(c) || p.IsLeader(c.UserID) || p.IsMember(c.UserID)
}

func adminOnly(c Caller, action string) error {
	if !c.Active {
		return apierrors.Forbidden(MsgInactive)
	}
	if !IsAdmin(c) {
		return apierrors.Forbidden(fmt.Sprintf("Only admins can %s.", action))
	}
	return nil
}

func CanCreateProject(c Caller) error  { return adminOnly(c, "create projects") }
func CanDeleteProject(c Caller) error  { return adminOnly(c, "delete projects") }
func CanRestoreProject(c Caller) error { return adminOnly(c, "restore projects") }
func CanManageUsers(c Caller) error    { return adminOnly(c, "manage users") }

func CanReadProject(c Caller, p *models.Project) error {
	if !HasProjectAccess(c, p) {
		return apierrors.Forbidden("You don't have access to this project.")
	}
	return nil
}

func CanUpdateProject(c Caller, p *models.Project) error {
	if !c.Active {
		return apierrors.Forbidden(MsgInactive)
	}
	if IsAdmin(c) || p.IsLeader(c.UserID) {
		return nil
	}
	return apierrors.Forbidden("Only admins or the project leader can update this project.")
}

// AuthorizeTask decides a task operation. fields is only consulted for OpUpdate.
// task may be nil for OpCreate.
func AuthorizeTask(c Caller, p *models.Project, task *models.Task, op Operation, fields []TaskField) error {
	if !c.Active {
		return apierrors.Forbidden(MsgInactive)
	}
	if IsAdmin(c) || p.IsLeader(c.UserID) {
		return nil
	}

	assignee := task != nil && task.IsAssignedTo(c.UserID)
	switch op {
	case OpRead:
		if assignee || p.IsMember(c.UserID) {
			return nil
		}
	case OpUpdate:
		if assignee {
			for _, f := range fields {
				if _, ok := assigneeFields[f]; !ok {
					return apierrors.Forbidden(MsgRestrictedFields)
				}
			}
			return nil
		}
	}
	return apierrors.Forbidden(fmt.Sprintf("You don't have permission to %s this task.", op))
}

// AuthorizeWorklogCreate checks who may log time against task.
func AuthorizeWorklogCreate(c Caller, p *models.Project, task *models.Task) error {
	if !c.Active {
		return apierrors.Forbidden(MsgInactive)
	}
	switch c.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleProjectManager:
		if p.IsLeader(c.UserID) {
			return nil
		}
		return apierrors.Forbidden(MsgNotProjectManager)
	case models.RoleTeamMember:
		if task.IsAssignedTo(c.UserID) {
			return nil
		}
		return apierrors.Forbidden(MsgNotAssigned)
	}
	return apierrors.Forbidden("You don't have permission to log time on this task.")
}

// AuthorizeWorklog decides read, update, delete and restore of an existing worklog.
// Owners who are neither admin nor leader may only delete within 24h of creation.
func AuthorizeWorklog(c Caller, p *models.Project, w *models.Worklog, op Operation, now time.Time) error {
	if !c.Active {
		return apierrors.Forbidden(MsgInactive)
	}
	if IsAdmin(c) || p.IsLeader(c.UserID) {
		return nil
	}
	if !w.IsOwnedBy(c.UserID) {
		return apierrors.Forbidden(fmt.Sprintf("You don't have permission to %s this worklog.", op))
	}
	if op == OpDelete && now.Sub(w.CreatedAt) > constants.WorklogDeleteWindow {
		return apierrors.Forbidden(MsgDeleteWindow)
	}
	return nil
}
