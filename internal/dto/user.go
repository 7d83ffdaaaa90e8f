package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserSummaryDTO is the compact user embedded in other resources
type UserSummaryDTO struct {
	ID         uint64            `json:"id"`
	Fname      string            `json:"fname"`
	Lname      string            `json:"lname"`
	Email      string            `json:"email"`
	GlobalRole models.GlobalRole `json:"global_role"`
}

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                   uint64            `json:"id"`
	Email                string            `json:"email"`
	Fname                string            `json:"fname"`
	Lname                string            `json:"lname"`
	GlobalRole           models.GlobalRole `json:"global_role"`
	IsActive             bool              `json:"is_active"`
	IsTempPasswordActive bool              `json:"is_temp_password_active"`
	LastActive           *time.Time        `json:"last_active,omitempty"`
	CreatedBy            *uint64           `json:"created_by,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	IsDeleted            bool              `json:"is_deleted"`
	DeletedAt            *time.Time        `json:"deleted_at,omitempty"`
	DeletedBy            *uint64           `json:"deleted_by,omitempty"`
}

// AssignmentDTO is one project the user belongs to
type AssignmentDTO struct {
	ProjectID    uint64               `json:"project_id"`
	ProjectTitle string               `json:"project_title"`
	Status       models.ProjectStatus `json:"project_status"`
	ProjectRole  models.ProjectRole   `json:"project_role"`
	AssignedAt   time.Time            `json:"assigned_at"`
}

// ProfileDTO is the authenticated user with their project assignments
type ProfileDTO struct {
	UserDTO
	ProjectAssignments []AssignmentDTO `json:"project_assignments"`
}

// ToUserSummaryDTO converts a User model to UserSummaryDTO
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:         user.ID,
		Fname:      user.Fname,
		Lname:      user.Lname,
		Email:      user.Email,
		GlobalRole: user.GlobalRole,
	}
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:                   user.ID,
		Email:                user.Email,
		Fname:                user.Fname,
		Lname:                user.Lname,
		GlobalRole:           user.GlobalRole,
		IsActive:             user.IsActive,
		IsTempPasswordActive: user.IsTempPasswordActive,
		LastActive:           user.LastActive,
		CreatedBy:            user.CreatedBy,
		CreatedAt:            user.CreatedAt,
		UpdatedAt:            user.UpdatedAt,
		IsDeleted:            user.IsDeleted,
		DeletedAt:            user.DeletedAt,
		DeletedBy:            user.DeletedBy,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// ToProfileDTO converts a user and their memberships to ProfileDTO
func ToProfileDTO(user models.User, assignments []models.ProjectMember) ProfileDTO {
	items := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		items[i] = AssignmentDTO{
			ProjectID:    a.ProjectID,
			ProjectTitle: a.Project.Title,
			Status:       a.Project.Status,
			ProjectRole:  a.ProjectRole,
			AssignedAt:   a.AssignedAt,
		}
	}
	return ProfileDTO{
		UserDTO:            ToUserDTO(user),
		ProjectAssignments: items,
	}
}
