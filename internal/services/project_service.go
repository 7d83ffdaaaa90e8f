package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

const msgDateOrder = "Start date must be before end date."

// ProjectService handles project and membership business logic.
type ProjectService struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store repository.Store, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		logger: logger.Named("projects"),
		now:    time.Now,
	}
}

// MemberInput is one requested membership row.
type MemberInput struct {
	UserID      uint64
	ProjectRole models.ProjectRole
}

// ValidateMembers normalizes a requested member list. users must hold every
// candidate that exists, deleted or not. Rows for users already in existing keep
// their assignment audit and, when no role is given, their role. The leader is
// appended with the leader role when missing.
func ValidateMembers(candidates []MemberInput, leaderID uint64, users map[uint64]*models.User, existing []models.ProjectMember, by uint64, now time.Time) ([]models.ProjectMember, error) {
	previous := make(map[uint64]models.ProjectMember, len(existing))
	for _, m := range existing {
		previous[m.UserID] = m
	}

	seen := make(map[uint64]struct{}, len(candidates))
	members := make([]models.ProjectMember, 0, len(candidates)+1)
	for _, c := range candidates {
		if _, dup := seen[c.UserID]; dup {
			return nil, apierrors.State(fmt.Sprintf("Duplicate user %d in members array.", c.UserID))
		}
		seen[c.UserID] = struct{}{}

		user, ok := users[c.UserID]
		if !ok || user.IsDeleted {
			return nil, apierrors.Validation(fmt.Sprintf("User %d not found.", c.UserID))
		}
		if user.GlobalRole != models.RoleTeamMember && user.GlobalRole != models.RoleProjectManager {
			return nil, apierrors.Validation(fmt.Sprintf("User %d must be a team member or project manager.", c.UserID))
		}

		row := models.ProjectMember{
			UserID:      c.UserID,
			ProjectRole: c.ProjectRole,
			AssignedAt:  now,
			AssignedBy:  by,
		}
		if prev, ok := previous[c.UserID]; ok {
			row.AssignedAt = prev.AssignedAt
			row.AssignedBy = prev.AssignedBy
			if row.ProjectRole == "" {
				row.ProjectRole = prev.ProjectRole
			}
		}
		if row.ProjectRole == "" && c.UserID == leaderID {
			row.ProjectRole = models.ProjectRoleLeader
		}
		if !row.ProjectRole.IsValid() {
			return nil, apierrors.Validation(fmt.Sprintf("Invalid project role %q for user %d.", c.ProjectRole, c.UserID))
		}
		members = append(members, row)
	}

	if _, ok := seen[leaderID]; !ok {
		row := models.ProjectMember{
			UserID:      leaderID,
			ProjectRole: models.ProjectRoleLeader,
			AssignedAt:  now,
			AssignedBy:  by,
		}
		if prev, ok := previous[leaderID]; ok {
			row.AssignedAt = prev.AssignedAt
			row.AssignedBy = prev.AssignedBy
		}
		members = append(members, row)
	}
	return members, nil
}

func (s *ProjectService) loadCandidates(ctx context.Context, candidates []MemberInput) (map[uint64]*models.User, error) {
	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}
	users, err := s.store.Users().FindByIDs(ctx, ids, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	byID := make(map[uint64]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

// findLeader loads a user who must be an active project manager.
func (s *ProjectService) findLeader(ctx context.Context, leaderID uint64) (*models.User, error) {
	leader, err := s.store.Users().FindByID(ctx, leaderID, false)
	if err != nil {
		if isNotFound(err) {
			return nil, apierrors.Validation("Project leader must be an active project manager.")
		}
		return nil, fmt.Errorf("failed to find leader: %w", err)
	}
	if !authz.IsActive(leader) {
		return nil, apierrors.Validation("Project leader must be an active project manager.")
	}
	if leader.GlobalRole != models.RoleProjectManager {
		return nil, apierrors.Validation(fmt.Sprintf("Project leader must be a project manager. Current role: %s", leader.GlobalRole))
	}
	return leader, nil
}

// CreateProjectInput holds the fields for a new project.
type CreateProjectInput struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	LeaderID    uint64
	Status      *models.ProjectStatus
	Members     []MemberInput
}

// CreateProject creates a project; the leader is always stored as a member.
func (s *ProjectService) CreateProject(ctx context.Context, caller authz.Caller, input CreateProjectInput) (*models.Project, []notify.Effect, error) {
	if err := authz.CanCreateProject(caller); err != nil {
		return nil, nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(input.Description) == "" || input.StartDate == nil || input.EndDate == nil || input.LeaderID == 0 {
		return nil, nil, apierrors.Validation("All fields are required.")
	}
	if !input.StartDate.Before(*input.EndDate) {
		return nil, nil, apierrors.Validation(msgDateOrder)
	}
	status := models.ProjectStatusPlanning
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid project status %q.", *input.Status))
		}
		status = *input.Status
	}

	if _, err := s.findLeader(ctx, input.LeaderID); err != nil {
		return nil, nil, err
	}
	users, err := s.loadCandidates(ctx, input.Members)
	if err != nil {
		return nil, nil, err
	}
	members, err := ValidateMembers(input.Members, input.LeaderID, users, nil, caller.UserID, s.now())
	if err != nil {
		return nil, nil, err
	}

	project := &models.Project{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		LeaderID:    input.LeaderID,
		Status:      status,
		StartDate:   *input.StartDate,
		EndDate:     *input.EndDate,
		CreatedBy:   caller.UserID,
		Members:     members,
	}
	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, nil, fmt.Errorf("failed to create project: %w", err)
	}

	created, err := s.store.Projects().FindByID(ctx, project.ID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload project: %w", err)
	}

	s.logger.Info("project created",
		zap.Uint64("project_id", created.ID),
		zap.Uint64("leader_id", created.LeaderID),
		zap.Int("members", len(created.Members)),
	)
	return created, assignmentEffects(created, nil, caller.UserID), nil
}

// assignmentEffects notifies members that were not in before.
func assignmentEffects(project *models.Project, before map[uint64]struct{}, by uint64) []notify.Effect {
	var effects []notify.Effect
	for i := range project.Members {
		m := &project.Members[i]
		if _, ok := before[m.UserID]; ok || m.UserID == by || m.User.ID == 0 {
			continue
		}
		effects = append(effects, notify.ProjectAssigned(&m.User, project, m.ProjectRole, by))
	}
	return effects
}

// ListProjectsInput filters the project list.
type ListProjectsInput struct {
	Status         *models.ProjectStatus
	Search         string
	IncludeDeleted bool
	Pagination     utils.PaginationParams
}

// visibleProjectIDs returns nil for admins (no restriction) and the accessible ids otherwise.
func (s *ProjectService) visibleProjectIDs(ctx context.Context, caller authz.Caller) ([]uint64, error) {
	if authz.IsAdmin(caller) {
		return nil, nil
	}
	ids, err := s.store.Projects().AccessibleIDs(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accessible projects: %w", err)
	}
	return ids, nil
}

// ListProjects lists the projects the caller can see. Only admins see deleted ones.
func (s *ProjectService) ListProjects(ctx context.Context, caller authz.Caller, input ListProjectsInput) ([]models.Project, int64, error) {
	if !caller.Active {
		return nil, 0, apierrors.Forbidden(authz.MsgInactive)
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, 0, apierrors.Validation(fmt.Sprintf("Invalid project status %q.", *input.Status))
	}

	ids, err := s.visibleProjectIDs(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	projects, total, err := s.store.Projects().List(ctx, repository.ProjectFilter{
		IDs:            ids,
		Status:         input.Status,
		Search:         input.Search,
		IncludeDeleted: input.IncludeDeleted && authz.IsAdmin(caller),
		Offset:         input.Pagination.Offset,
		Limit:          input.Pagination.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// GetProject returns a project the caller has access to. Admins can see deleted projects.
func (s *ProjectService) GetProject(ctx context.Context, caller authz.Caller, id uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id, true)
	if err != nil {
		return nil, lookupErr(err, "Project")
	}
	if project.IsDeleted && !authz.IsAdmin(caller) {
		return nil, apierrors.NotFound("Project not found.")
	}
	if err := authz.CanReadProject(caller, project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProjectInput is a partial update; nil fields are left unchanged.
// A non-nil Members replaces the whole member list.
type UpdateProjectInput struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *models.ProjectStatus
	LeaderID    *uint64
	Members     *[]MemberInput
}

func (s *ProjectService) UpdateProject(ctx context.Context, caller authz.Caller, id uint64, input UpdateProjectInput) (*models.Project, []notify.Effect, error) {
	project, err := s.store.Projects().FindByID(ctx, id, false)
	if err != nil {
		return nil, nil, lookupErr(err, "Project")
	}
	if err := authz.CanUpdateProject(caller, project); err != nil {
		return nil, nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, nil, apierrors.Validation("Title cannot be empty.")
		}
		project.Title = title
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.StartDate != nil {
		project.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = *input.EndDate
	}
	if !project.StartDate.Before(project.EndDate) {
		return nil, nil, apierrors.Validation(msgDateOrder)
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid project status %q.", *input.Status))
		}
		project.Status = *input.Status
	}

	leaderChanged := input.LeaderID != nil && *input.LeaderID != project.LeaderID
	if leaderChanged {
		if _, err := s.findLeader(ctx, *input.LeaderID); err != nil {
			return nil, nil, err
		}
		project.LeaderID = *input.LeaderID
	}

	before := make(map[uint64]struct{}, len(project.Members))
	for _, m := range project.Members {
		before[m.UserID] = struct{}{}
	}

	now := s.now()
	var members []models.ProjectMember
	if input.Members != nil {
		users, err := s.loadCandidates(ctx, *input.Members)
		if err != nil {
			return nil, nil, err
		}
		members, err = ValidateMembers(*input.Members, project.LeaderID, users, project.Members, caller.UserID, now)
		if err != nil {
			return nil, nil, err
		}
		if leaderChanged {
			for i := range members {
				if members[i].UserID == project.LeaderID {
					members[i].ProjectRole = models.ProjectRoleLeader
				}
			}
		}
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Update(ctx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		if members != nil {
			if err := tx.Projects().ReplaceMembers(ctx, project.ID, members); err != nil {
				return fmt.Errorf("failed to replace members: %w", err)
			}
			return nil
		}
		if leaderChanged {
			row := &models.ProjectMember{
				ProjectID:   project.ID,
				UserID:      project.LeaderID,
				ProjectRole: models.ProjectRoleLeader,
				AssignedAt:  now,
				AssignedBy:  caller.UserID,
			}
			if err := tx.Projects().UpsertMember(ctx, row); err != nil {
				return fmt.Errorf("failed to set leader membership: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.store.Projects().FindByID(ctx, project.ID, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload project: %w", err)
	}

	s.logger.Info("project updated",
		zap.Uint64("project_id", updated.ID),
		zap.Bool("leader_changed", leaderChanged),
		zap.Bool("members_replaced", members != nil),
		zap.Uint64("by", caller.UserID),
	)
	return updated, assignmentEffects(updated, before, caller.UserID), nil
}

// DeleteProject soft-deletes a live project.
func (s *ProjectService) DeleteProject(ctx context.Context, caller authz.Caller, id uint64) error {
	project, err := s.store.Projects().FindByID(ctx, id, false)
	if err != nil {
		return lookupErr(err, "Project")
	}
	if err := authz.CanDeleteProject(caller); err != nil {
		return err
	}

	project.MarkDeleted(caller.UserID, s.now())
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.logger.Info("project deleted", zap.Uint64("project_id", project.ID), zap.Uint64("by", caller.UserID))
	return nil
}

// RestoreProject clears the soft-delete flag of a deleted project.
func (s *ProjectService) RestoreProject(ctx context.Context, caller authz.Caller, id uint64) (*models.Project, error) {
	project, err := s.store.Projects().FindByID(ctx, id, true)
	if err != nil {
		return nil, lookupErr(err, "Project")
	}
	if !project.IsDeleted {
		return nil, apierrors.NotFound("Project not found.")
	}
	if err := authz.CanRestoreProject(caller); err != nil {
		return nil, err
	}

	project.Restore()
	if err := s.store.Projects().Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to restore project: %w", err)
	}
	s.logger.Info("project restored", zap.Uint64("project_id", project.ID), zap.Uint64("by", caller.UserID))
	return project, nil
}

// ProjectStats counts the caller's visible live projects per status.
type ProjectStats struct {
	Total    int64
	ByStatus map[models.ProjectStatus]int64
}

func (s *ProjectService) Stats(ctx context.Context, caller authz.Caller) (*ProjectStats, error) {
	if !caller.Active {
		return nil, apierrors.Forbidden(authz.MsgInactive)
	}
	ids, err := s.visibleProjectIDs(ctx, caller)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Projects().CountByStatus(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	stats := &ProjectStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
