package models

import "time"

// SoftDelete carries the audit columns shared by every soft-deletable entity.
// Rows are never filtered implicitly; repositories take an explicit includeDeleted flag.
type SoftDelete struct {
	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *uint64    `json:"deleted_by,omitempty"`
}

func (s *SoftDelete) MarkDeleted(by uint64, at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
	s.DeletedBy = &by
}

func (s *SoftDelete) Restore() {
	s.IsDeleted = false
	s.DeletedAt = nil
	s.DeletedBy = nil
}
