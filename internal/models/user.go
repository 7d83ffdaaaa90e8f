package models

import (
	"strings"
	"time"
)

type GlobalRole string

const (
	RoleAdmin          GlobalRole = "admin"
	RoleProjectManager GlobalRole = "project_manager"
	RoleTeamMember     GlobalRole = "team_member"
)

func (r GlobalRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTeamMember:
		return true
	}
	return false
}

type User struct {
	ID                   uint64     `gorm:"primarykey" json:"id"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Fname                string     `gorm:"type:varchar(100);not null" json:"fname"`
	Lname                string     `gorm:"type:varchar(100)" json:"lname"`
	PasswordHash         string     `gorm:"type:varchar(255);not null" json:"-"`
	GlobalRole           GlobalRole `gorm:"type:varchar(20);not null;default:'team_member';index" json:"global_role"`
	IsTempPasswordActive bool       `gorm:"not null;default:false" json:"is_temp_password_active"`
	IsActive             bool       `gorm:"not null;default:true" json:"is_active"`
	LastPasswordChange   *time.Time `json:"last_password_change,omitempty"`
	RefreshToken         string     `gorm:"type:text" json:"-"`
	LastActive           *time.Time `json:"last_active,omitempty"`
	CreatedBy            *uint64    `json:"created_by,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	SoftDelete

	// Relations
	ProjectAssignments []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
	OTPRequests        []OTPRequest    `gorm:"foreignKey:UserID" json:"-"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.Fname + " " + u.Lname)
}

type OTPPurpose string

const (
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePhoneVerification OTPPurpose = "phone_verification"
)

// OTPRequest is a one-time code issued to a user. Code holds a bcrypt hash.
type OTPRequest struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	UserID    uint64     `gorm:"not null;index" json:"user_id"`
	Code      string     `gorm:"type:varchar(255);not null" json:"-"`
	Purpose   OTPPurpose `gorm:"type:varchar(30);not null;index" json:"purpose"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	Used      bool       `gorm:"not null;default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (o OTPRequest) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
