package models

import "time"

type Worklog struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	TaskID      uint64    `gorm:"not null;index" json:"task_id"`
	UserID      uint64    `gorm:"not null;index:idx_worklogs_user_date" json:"user_id"`
	Date        time.Time `gorm:"not null;index:idx_worklogs_user_date" json:"date"`
	Hours       float64   `gorm:"not null" json:"hours"`
	Description string    `gorm:"type:varchar(500);not null" json:"description"`
	IsOvertime  bool      `gorm:"not null;default:false" json:"is_overtime"`
	CreatedBy   uint64    `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SoftDelete

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (w *Worklog) IsOwnedBy(userID uint64) bool {
	return w.UserID == userID
}

// DayBounds returns local midnight of t and the following midnight.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
