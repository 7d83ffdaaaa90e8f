package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Leader").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("project_members.assigned_at ASC")
		}).
		Preload("Members.User")
}

// Create creates a project and its member rows
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := project.Members
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].ProjectID = project.ID
		}
		if len(members) > 0 {
			if err := tx.Omit(clause.Associations).Create(&members).Error; err != nil {
				return err
			}
		}
		project.Members = members
		return nil
	})
}

// FindByID finds a project by ID with leader and members preloaded
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("projects", includeDeleted), preloadMembers).
		First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects with filtering and pagination
func (r *GormProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return []models.Project{}, 0, nil
	}

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Project{}).
			Scopes(
				database.Live("projects", filter.IncludeDeleted),
				database.Search(filter.Search, "projects.title", "projects.description"),
			)
		if filter.IDs != nil {
			query = query.Where("projects.id IN ?", filter.IDs)
		}
		if filter.Status != nil {
			query = query.Where("projects.status = ?", *filter.Status)
		}
		return query
	}

	var (
		projects []models.Project
		total    int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base().Count(&total).Error
	})
	g.Go(func() error {
		return base().
			Scopes(preloadMembers, database.Window(filter.Offset, filter.Limit)).
			Order("projects.created_at DESC").
			Find(&projects).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// Update saves project columns without touching members or the task counter
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations, "TaskSeq").Save(project).Error
}

// ReplaceMembers swaps the full member list of a project
func (r *GormProjectRepository) ReplaceMembers(ctx context.Context, projectID uint64, members []models.ProjectMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		for i := range members {
			members[i].ProjectID = projectID
		}
		return tx.Omit(clause.Associations).Create(&members).Error
	})
}

// UpsertMember inserts a member row or overwrites its role
func (r *GormProjectRepository) UpsertMember(ctx context.Context, member *models.ProjectMember) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"project_role"}),
		}).
		Create(member).Error
}

// NextTaskSeq increments the project's task counter and returns the new value.
// Callers should run it inside the transaction that inserts the task.
func (r *GormProjectRepository) NextTaskSeq(ctx context.Context, projectID uint64) (int64, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("task_seq", gorm.Expr("task_seq + ?", 1))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var seq int64
	if err := db.Model(&models.Project{}).
		Select("task_seq").
		Where("id = ?", projectID).
		Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}

// AccessibleIDs returns live project ids the user leads or belongs to
func (r *GormProjectRepository) AccessibleIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	memberOf := r.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)

	ids := []uint64{}
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Scopes(database.Live("projects", false)).
		Where("projects.leader_id = ? OR projects.id IN (?)", userID, memberOf).
		Pluck("projects.id", &ids).Error
	return ids, err
}

// LedIDs returns ids of every project led by the user, deleted ones included
func (r *GormProjectRepository) LedIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	ids := []uint64{}
	err := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("leader_id = ?", userID).
		Pluck("id", &ids).Error
	return ids, err
}

// CountByStatus counts live projects per status; nil projectIDs means all projects
func (r *GormProjectRepository) CountByStatus(ctx context.Context, projectIDs []uint64) (map[models.ProjectStatus]int64, error) {
	counts := make(map[models.ProjectStatus]int64, len(models.ProjectStatuses))
	for _, s := range models.ProjectStatuses {
		counts[s] = 0
	}
	if projectIDs != nil && len(projectIDs) == 0 {
		return counts, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Project{}).
		Scopes(database.Live("projects", false))
	if projectIDs != nil {
		query = query.Where("projects.id IN ?", projectIDs)
	}

	var rows []struct {
		Status models.ProjectStatus
		Count  int64
	}
	if err := query.Select("projects.status AS status, COUNT(*) AS count").
		Group("projects.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
