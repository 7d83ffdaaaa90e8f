package models

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// taskTransitions lists the non-self moves allowed from each status.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusOpen},
	TaskStatusOpen:       {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusReview},
	TaskStatusReview:     {TaskStatusDone, TaskStatusInProgress},
	TaskStatusDone:       {},
}

func (s TaskStatus) IsValid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// CanTransitionTo reports whether a task in status s may move to next.
// Self-transitions are always allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InvalidTransitionMessage names the rejected from→to pair.
func InvalidTransitionMessage(from, to TaskStatus) string {
	return fmt.Sprintf("Invalid transition from %s to %s.", from, to)
}

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	}
	return false
}

type Task struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	TaskNumber     string       `gorm:"type:varchar(50);not null;uniqueIndex:uk_project_task_number" json:"task_number"`
	Title          string       `gorm:"type:varchar(255);not null" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	ProjectID      uint64       `gorm:"not null;index;uniqueIndex:uk_project_task_number" json:"project_id"`
	AssignedTo     *uint64      `gorm:"index" json:"assigned_to"`
	ParentTaskID   *uint64      `gorm:"index" json:"parent_task_id"`
	Status         TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority       TaskPriority `gorm:"type:varchar(20);not null;default:'low';index" json:"priority"`
	EstimatedHours *float64     `json:"estimated_hours"`
	ActualHours    float64      `gorm:"not null;default:0" json:"actual_hours"`
	StartDate      *time.Time   `json:"start_date"`
	EndDate        *time.Time   `json:"end_date"`
	CompletedAt    *time.Time   `json:"completed_at"`
	CreatedBy      uint64       `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	SoftDelete

	// Relations
	Project  Project `gorm:"foreignKey:ProjectID" json:"-"`
	Assignee *User   `gorm:"foreignKey:AssignedTo" json:"-"`
	Parent   *Task   `gorm:"foreignKey:ParentTaskID" json:"-"`
}

func (t *Task) IsAssignedTo(userID uint64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}

// ApplyStatus moves the task to next, stamping CompletedAt on the first entry into done.
// The caller must have checked CanTransitionTo.
func (t *Task) ApplyStatus(next TaskStatus, now time.Time) {
	if next == TaskStatusDone && t.Status != TaskStatusDone && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.Status = next
}
