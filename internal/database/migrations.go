package database

import (
	"fmt"

	"gorm.io/gorm"
)

// compositeIndexes are the multi-column indexes not expressed in model tags.
var compositeIndexes = []struct {
	table   string
	name    string
	columns string
}{
	// Task filtering inside a project
	{"tasks", "idx_tasks_project_status", "project_id, status"},
	{"tasks", "idx_tasks_project_assignee", "project_id, assigned_to"},
	{"tasks", "idx_tasks_parent_deleted", "parent_task_id, is_deleted"},

	// Worklog listing and summaries
	{"worklogs", "idx_worklogs_task_deleted", "task_id, is_deleted"},

	// Notification inbox ordering
	{"notifications", "idx_notifications_user_created", "user_id, created_at"},
}

// AddIndexes creates the composite indexes that do not exist yet.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
