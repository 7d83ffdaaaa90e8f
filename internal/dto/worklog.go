package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

// WorklogDTO represents a worklog in API responses
type WorklogDTO struct {
	ID          uint64          `json:"id"`
	TaskID      uint64          `json:"task_id"`
	UserID      uint64          `json:"user_id"`
	Date        time.Time       `json:"date"`
	Hours       float64         `json:"hours"`
	Description string          `json:"description"`
	IsOvertime  bool            `json:"is_overtime"`
	CreatedBy   uint64          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	IsDeleted   bool            `json:"is_deleted"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy   *uint64         `json:"deleted_by,omitempty"`
	Task        *TaskRefDTO     `json:"task,omitempty"`
	User        *UserSummaryDTO `json:"user,omitempty"`
}

// HoursDTO is one block of summary metrics
type HoursDTO struct {
	TotalHours         float64 `json:"total_hours"`
	RegularHours       float64 `json:"regular_hours"`
	OvertimeHours      float64 `json:"overtime_hours"`
	WorklogCount       int64   `json:"worklog_count"`
	AvgHoursPerLog     float64 `json:"avg_hours_per_log"`
	OvertimePercentage float64 `json:"overtime_percentage"`
}

// SummaryGroupDTO is one grouped row of a worklog summary
type SummaryGroupDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Extra string `json:"extra,omitempty"`
	HoursDTO
}

// WorklogSummaryDTO is the summary response body
type WorklogSummaryDTO struct {
	GroupBy string            `json:"group_by"`
	Groups  []SummaryGroupDTO `json:"groups"`
	Overall HoursDTO          `json:"overall"`
}

// ToWorklogDTO converts a Worklog model to WorklogDTO
func ToWorklogDTO(w models.Worklog) WorklogDTO {
	dto := WorklogDTO{
		ID:          w.ID,
		TaskID:      w.TaskID,
		UserID:      w.UserID,
		Date:        w.Date,
		Hours:       w.Hours,
		Description: w.Description,
		IsOvertime:  w.IsOvertime,
		CreatedBy:   w.CreatedBy,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		IsDeleted:   w.IsDeleted,
		DeletedAt:   w.DeletedAt,
		DeletedBy:   w.DeletedBy,
	}
	if w.Task.ID != 0 {
		task := ToTaskRefDTO(w.Task)
		dto.Task = &task
	}
	if w.User.ID != 0 {
		user := ToUserSummaryDTO(w.User)
		dto.User = &user
	}
	return dto
}

// ToWorklogDTOs converts a slice of worklogs
func ToWorklogDTOs(worklogs []models.Worklog) []WorklogDTO {
	out := make([]WorklogDTO, len(worklogs))
	for i, w := range worklogs {
		out[i] = ToWorklogDTO(w)
	}
	return out
}

func toHoursDTO(b services.HoursBreakdown) HoursDTO {
	return HoursDTO{
		TotalHours:         b.TotalHours,
		RegularHours:       b.RegularHours,
		OvertimeHours:      b.OvertimeHours,
		WorklogCount:       b.WorklogCount,
		AvgHoursPerLog:     b.AvgHoursPerLog,
		OvertimePercentage: b.OvertimePercentage,
	}
}

// ToWorklogSummaryDTO converts a computed summary
func ToWorklogSummaryDTO(s services.WorklogSummary) WorklogSummaryDTO {
	groups := make([]SummaryGroupDTO, len(s.Groups))
	for i, g := range s.Groups {
		groups[i] = SummaryGroupDTO{
			Key:      g.Key,
			Label:    g.Label,
			Extra:    g.Extra,
			HoursDTO: toHoursDTO(g.HoursBreakdown),
		}
	}
	return WorklogSummaryDTO{
		GroupBy: string(s.GroupBy),
		Groups:  groups,
		Overall: toHoursDTO(s.Overall),
	}
}
