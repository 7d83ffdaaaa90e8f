package models

import "time"

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

func (s ProjectStatus) IsValid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ProjectRole string

const (
	ProjectRoleLeader     ProjectRole = "leader"
	ProjectRoleFrontend   ProjectRole = "frontend_developer"
	ProjectRoleBackend    ProjectRole = "backend_developer"
	ProjectRoleFullstack  ProjectRole = "fullstack_developer"
	ProjectRoleUIUX       ProjectRole = "ui_ux_developer"
	ProjectRoleQAEngineer ProjectRole = "qa_engineer"
	ProjectRoleDevOps     ProjectRole = "devops_engineer"
)

func (r ProjectRole) IsValid() bool {
	switch r {
	case ProjectRoleLeader, ProjectRoleFrontend, ProjectRoleBackend, ProjectRoleFullstack,
		ProjectRoleUIUX, ProjectRoleQAEngineer, ProjectRoleDevOps:
		return true
	}
	return false
}

type Project struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	Title       string        `gorm:"type:varchar(200);not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	LeaderID    uint64        `gorm:"not null;index" json:"leader_id"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;default:'planning';index" json:"status"`
	StartDate   time.Time     `gorm:"not null" json:"start_date"`
	EndDate     time.Time     `gorm:"not null" json:"end_date"`
	TaskSeq     int64         `gorm:"not null;default:0" json:"-"`
	CreatedBy   uint64        `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	SoftDelete

	// Relations
	Leader  User            `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

func (p *Project) IsLeader(userID uint64) bool {
	return p.LeaderID == userID
}

// IsMember requires Members to be loaded.
func (p *Project) IsMember(userID uint64) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

type ProjectMember struct {
	ProjectID   uint64      `gorm:"primarykey" json:"project_id"`
	UserID      uint64      `gorm:"primarykey;index" json:"user_id"`
	ProjectRole ProjectRole `gorm:"type:varchar(30);not null" json:"project_role"`
	AssignedAt  time.Time   `json:"assigned_at"`
	AssignedBy  uint64      `json:"assigned_by"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
