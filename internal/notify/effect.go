package notify

import (
	"fmt"
	"strconv"

	"github.com/yukikurage/project-management-api/internal/models"
)

// Effect is a side effect a service asks for after its write has committed.
// Secret carries a one-time value (temp password, OTP) that is mailed but never stored.
type Effect struct {
	Kind         models.NotificationType
	UserID       uint64
	Email        string
	Name         string
	Data         map[string]string
	Secret       string
	RelatedID    *uint64
	RelatedModel string
	CreatedBy    *uint64
}

func Welcome(user *models.User, tempPassword string, by uint64) Effect {
	return Effect{
		Kind:         models.NotificationWelcome,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.FullName(),
		Data:         map[string]string{"role": string(user.GlobalRole)},
		Secret:       tempPassword,
		RelatedID:    &user.ID,
		RelatedModel: "User",
		CreatedBy:    &by,
	}
}

func TaskAssigned(assignee *models.User, task *models.Task, project *models.Project, by uint64) Effect {
	return Effect{
		Kind:   models.NotificationTaskAssigned,
		UserID: assignee.ID,
		Email:  assignee.Email,
		Name:   assignee.FullName(),
		Data: map[string]string{
			"task_title":    task.Title,
			"task_number":   task.TaskNumber,
			"project_title": project.Title,
			"priority":      string(task.Priority),
		},
		RelatedID:    &task.ID,
		RelatedModel: "Task",
		CreatedBy:    &by,
	}
}

func ProjectAssigned(member *models.User, project *models.Project, role models.ProjectRole, by uint64) Effect {
	return Effect{
		Kind:   models.NotificationProjectAssigned,
		UserID: member.ID,
		Email:  member.Email,
		Name:   member.FullName(),
		Data: map[string]string{
			"project_title": project.Title,
			"project_role":  string(role),
		},
		RelatedID:    &project.ID,
		RelatedModel: "Project",
		CreatedBy:    &by,
	}
}

func PasswordResetOTP(user *models.User, code string) Effect {
	return Effect{
		Kind:   models.NotificationPasswordResetOTP,
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
		Secret: code,
	}
}

func PasswordChanged(user *models.User) Effect {
	return Effect{
		Kind:         models.NotificationPasswordChanged,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.FullName(),
		RelatedID:    &user.ID,
		RelatedModel: "User",
	}
}

// AccountStatus reports a deactivation or reactivation; active selects the wording.
func AccountStatus(user *models.User, active bool, by uint64) Effect {
	status := "deactivated"
	if active {
		status = "reactivated"
	}
	return Effect{
		Kind:         models.NotificationAccountStatus,
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.FullName(),
		Data:         map[string]string{"status": status},
		RelatedID:    &user.ID,
		RelatedModel: "User",
		CreatedBy:    &by,
	}
}

type message struct {
	title    string
	body     string
	subject  string
	mail     string
	priority models.NotificationPriority
	persist  bool
}

func (e Effect) render() message {
	d := e.Data
	switch e.Kind {
	case models.NotificationWelcome:
		return message{
			title:    "Welcome aboard",
			body:     "Your account has been created. Please set a new password on first login.",
			subject:  "Welcome to Project Management Platform",
			mail:     fmt.Sprintf("Hello %s,\n\nAn account was created for you with role %s.\nTemporary password: %s\n\nYou will be asked to choose a new password after signing in.\n", e.Name, d["role"], e.Secret),
			priority: models.NotificationPriorityMedium,
			persist:  true,
		}
	case models.NotificationTaskAssigned:
		return message{
			title:    "New task assigned",
			body:     fmt.Sprintf("You have been assigned %s %s in %s.", d["task_number"], d["task_title"], d["project_title"]),
			subject:  "New Task Assigned: " + d["task_title"],
			mail:     fmt.Sprintf("Hello %s,\n\nYou have been assigned task %s \"%s\" (priority %s) in project %s.\n", e.Name, d["task_number"], d["task_title"], d["priority"], d["project_title"]),
			priority: models.NotificationPriorityHigh,
			persist:  true,
		}
	case models.NotificationProjectAssigned:
		return message{
			title:    "Added to project",
			body:     fmt.Sprintf("You have been added to %s as %s.", d["project_title"], d["project_role"]),
			subject:  "You've been added to project: " + d["project_title"],
			mail:     fmt.Sprintf("Hello %s,\n\nYou have been added to project %s with role %s.\n", e.Name, d["project_title"], d["project_role"]),
			priority: models.NotificationPriorityMedium,
			persist:  true,
		}
	case models.NotificationPasswordResetOTP:
		return message{
			subject: "Password Reset OTP - Project Management Platform",
			mail:    fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in 10 minutes.\nIf you did not request a reset, ignore this email.\n", e.Name, e.Secret),
		}
	case models.NotificationPasswordChanged:
		return message{
			title:    "Password changed",
			body:     "Your password was changed successfully.",
			subject:  "Password Changed Successfully",
			mail:     fmt.Sprintf("Hello %s,\n\nYour password was just changed. If this was not you, contact an administrator.\n", e.Name),
			priority: models.NotificationPriorityHigh,
			persist:  true,
		}
	case models.NotificationAccountStatus:
		return message{
			title:    "Account " + d["status"],
			body:     "Your account has been " + d["status"] + ".",
			subject:  "Account " + d["status"],
			mail:     fmt.Sprintf("Hello %s,\n\nYour account has been %s by an administrator.\n", e.Name, d["status"]),
			priority: models.NotificationPriorityHigh,
			persist:  true,
		}
	}
	return message{subject: string(e.Kind), mail: "", persist: false}
}

func (e Effect) String() string {
	return string(e.Kind) + ":" + strconv.FormatUint(e.UserID, 10)
}
