package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// MemberDTO represents a project member in API responses
type MemberDTO struct {
	UserID      uint64             `json:"user_id"`
	ProjectRole models.ProjectRole `json:"project_role"`
	AssignedAt  time.Time          `json:"assigned_at"`
	AssignedBy  uint64             `json:"assigned_by"`
	User        *UserSummaryDTO    `json:"user,omitempty"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   time.Time            `json:"start_date"`
	EndDate     time.Time            `json:"end_date"`
	LeaderID    uint64               `json:"leader_id"`
	Leader      *UserSummaryDTO      `json:"leader,omitempty"`
	Members     []MemberDTO          `json:"members"`
	CreatedBy   uint64               `json:"created_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	IsDeleted   bool                 `json:"is_deleted"`
	DeletedAt   *time.Time           `json:"deleted_at,omitempty"`
	DeletedBy   *uint64              `json:"deleted_by,omitempty"`
}

// ProjectRefDTO is the compact project embedded in tasks
type ProjectRefDTO struct {
	ID     uint64               `json:"id"`
	Title  string               `json:"title"`
	Status models.ProjectStatus `json:"status"`
}

// ProjectStatsDTO holds per-status project counts
type ProjectStatsDTO struct {
	Total    int64                          `json:"total"`
	ByStatus map[models.ProjectStatus]int64 `json:"by_status"`
}

// ToMemberDTO converts a ProjectMember model to MemberDTO
func ToMemberDTO(member models.ProjectMember) MemberDTO {
	dto := MemberDTO{
		UserID:      member.UserID,
		ProjectRole: member.ProjectRole,
		AssignedAt:  member.AssignedAt,
		AssignedBy:  member.AssignedBy,
	}

	// Include user if preloaded
	if member.User.ID != 0 {
		user := ToUserSummaryDTO(member.User)
		dto.User = &user
	}
	return dto
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		Status:      project.Status,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		LeaderID:    project.LeaderID,
		Members:     make([]MemberDTO, len(project.Members)),
		CreatedBy:   project.CreatedBy,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
		IsDeleted:   project.IsDeleted,
		DeletedAt:   project.DeletedAt,
		DeletedBy:   project.DeletedBy,
	}

	if project.Leader.ID != 0 {
		leader := ToUserSummaryDTO(project.Leader)
		dto.Leader = &leader
	}
	for i, m := range project.Members {
		dto.Members[i] = ToMemberDTO(m)
	}
	return dto
}

// ToProjectDTOs converts a slice of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}

// ToProjectStatsDTO fills every known status, zero when absent
func ToProjectStatsDTO(total int64, byStatus map[models.ProjectStatus]int64) ProjectStatsDTO {
	counts := make(map[models.ProjectStatus]int64, len(models.ProjectStatuses))
	for _, s := range models.ProjectStatuses {
		counts[s] = byStatus[s]
	}
	return ProjectStatsDTO{Total: total, ByStatus: counts}
}
