package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// TaskDTO represents a task or subtask in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	TaskNumber     string              `json:"task_number"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	ProjectID      uint64              `json:"project_id"`
	ParentTaskID   *uint64             `json:"parent_task_id"`
	AssignedTo     *uint64             `json:"assigned_to"`
	Status         models.TaskStatus   `json:"status"`
	Priority       models.TaskPriority `json:"priority"`
	EstimatedHours *float64            `json:"estimated_hours"`
	ActualHours    float64             `json:"actual_hours"`
	StartDate      *time.Time          `json:"start_date"`
	EndDate        *time.Time          `json:"end_date"`
	CompletedAt    *time.Time          `json:"completed_at"`
	CreatedBy      uint64              `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	IsDeleted      bool                `json:"is_deleted"`
	DeletedAt      *time.Time          `json:"deleted_at,omitempty"`
	DeletedBy      *uint64             `json:"deleted_by,omitempty"`
	Assignee       *UserSummaryDTO     `json:"assignee,omitempty"`
	Project        *ProjectRefDTO      `json:"project,omitempty"`
	Parent         *TaskRefDTO         `json:"parent,omitempty"`
}

// TaskRefDTO is the compact task embedded in subtasks and worklogs
type TaskRefDTO struct {
	ID         uint64            `json:"id"`
	TaskNumber string            `json:"task_number"`
	Title      string            `json:"title"`
	Status     models.TaskStatus `json:"status"`
}

// ToTaskRefDTO converts a Task model to TaskRefDTO
func ToTaskRefDTO(task models.Task) TaskRefDTO {
	return TaskRefDTO{
		ID:         task.ID,
		TaskNumber: task.TaskNumber,
		Title:      task.Title,
		Status:     task.Status,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:             task.ID,
		TaskNumber:     task.TaskNumber,
		Title:          task.Title,
		Description:    task.Description,
		ProjectID:      task.ProjectID,
		ParentTaskID:   task.ParentTaskID,
		AssignedTo:     task.AssignedTo,
		Status:         task.Status,
		Priority:       task.Priority,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		StartDate:      task.StartDate,
		EndDate:        task.EndDate,
		CompletedAt:    task.CompletedAt,
		CreatedBy:      task.CreatedBy,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		IsDeleted:      task.IsDeleted,
		DeletedAt:      task.DeletedAt,
		DeletedBy:      task.DeletedBy,
	}

	// Include relations if preloaded
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserSummaryDTO(*task.Assignee)
		dto.Assignee = &assignee
	}
	if task.Project.ID != 0 {
		dto.Project = &ProjectRefDTO{
			ID:     task.Project.ID,
			Title:  task.Project.Title,
			Status: task.Project.Status,
		}
	}
	if task.Parent != nil && task.Parent.ID != 0 {
		parent := ToTaskRefDTO(*task.Parent)
		dto.Parent = &parent
	}
	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}
