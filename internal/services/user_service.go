package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// UserService implements admin user management.
type UserService struct {
	store      repository.Store
	logger     *zap.Logger
	now        Clock
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:      store,
		logger:     logger.Named("users"),
		now:        time.Now,
		bcryptCost: constants.BcryptCost,
	}
}

// CreateUserInput holds the fields an admin supplies for a new account.
type CreateUserInput struct {
	Fname      string
	Lname      string
	Email      string
	GlobalRole models.GlobalRole
}

// CreateUser creates an account with a generated temporary password that is mailed to the user.
func (s *UserService) CreateUser(ctx context.Context, caller authz.Caller, input CreateUserInput) (*models.User, []notify.Effect, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	fname := strings.TrimSpace(input.Fname)
	if email == "" || fname == "" || input.GlobalRole == "" {
		return nil, nil, apierrors.Validation("Email, First Name and Global Role are required.")
	}
	if !input.GlobalRole.IsValid() {
		return nil, nil, apierrors.Validation(fmt.Sprintf("Invalid global role %q.", input.GlobalRole))
	}

	taken, err := s.store.Users().EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, nil, apierrors.Conflict("User with this email already exists.")
	}

	tempPassword, err := utils.GenerateTempPassword(constants.TempPasswordLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}
	hash, err := hashSecret(tempPassword, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:                email,
		Fname:                fname,
		Lname:                strings.TrimSpace(input.Lname),
		PasswordHash:         hash,
		GlobalRole:           input.GlobalRole,
		IsTempPasswordActive: true,
		IsActive:             true,
		CreatedBy:            uint64Ptr(caller.UserID),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.Uint64("user_id", user.ID),
		zap.String("role", string(user.GlobalRole)),
		zap.Uint64("by", caller.UserID),
	)
	return user, []notify.Effect{notify.Welcome(user, tempPassword, caller.UserID)}, nil
}

// ListUsersInput filters the user list.
type ListUsersInput struct {
	Role           *models.GlobalRole
	Search         string
	IncludeDeleted bool
	Pagination     utils.PaginationParams
}

func (s *UserService) ListUsers(ctx context.Context, caller authz.Caller, input ListUsersInput) ([]models.User, int64, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, 0, err
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, 0, apierrors.Validation(fmt.Sprintf("Invalid global role %q.", *input.Role))
	}

	users, total, err := s.store.Users().List(ctx, repository.UserFilter{
		Role:           input.Role,
		Search:         input.Search,
		IncludeDeleted: input.IncludeDeleted,
		Offset:         input.Pagination.Offset,
		Limit:          input.Pagination.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) GetUser(ctx context.Context, caller authz.Caller, id uint64) (*models.User, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, id, false)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	return user, nil
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Fname      *string
	Lname      *string
	Email      *string
	GlobalRole *models.GlobalRole
}

func (s *UserService) UpdateUser(ctx context.Context, caller authz.Caller, id uint64, input UpdateUserInput) (*models.User, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, id, true)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	if user.IsDeleted {
		return nil, apierrors.NotFound("Restore deleted user for update.")
	}

	if input.Fname != nil {
		fname := strings.TrimSpace(*input.Fname)
		if fname == "" {
			return nil, apierrors.Validation("First name cannot be empty.")
		}
		user.Fname = fname
	}
	if input.Lname != nil {
		user.Lname = strings.TrimSpace(*input.Lname)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apierrors.Validation("Email cannot be empty.")
		}
		taken, err := s.store.Users().EmailTaken(ctx, email, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, apierrors.Conflict("User with this email already exists.")
		}
		user.Email = email
	}
	if input.GlobalRole != nil {
		if !input.GlobalRole.IsValid() {
			return nil, apierrors.Validation(fmt.Sprintf("Invalid global role %q.", *input.GlobalRole))
		}
		user.GlobalRole = *input.GlobalRole
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("user updated", zap.Uint64("user_id", user.ID), zap.Uint64("by", caller.UserID))
	return user, nil
}

// SetUserStatus activates or deactivates an account. Admins cannot change their own status.
func (s *UserService) SetUserStatus(ctx context.Context, caller authz.Caller, id uint64, active bool) (*models.User, []notify.Effect, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, nil, err
	}
	if id == caller.UserID {
		return nil, nil, apierrors.Validation("You cannot change your own status.")
	}

	user, err := s.store.Users().FindByID(ctx, id, false)
	if err != nil {
		return nil, nil, lookupErr(err, "User")
	}
	if user.IsActive == active {
		state := "inactive"
		if active {
			state = "active"
		}
		return nil, nil, apierrors.State(fmt.Sprintf("User is already %s.", state))
	}

	user.IsActive = active
	if !active {
		user.RefreshToken = ""
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user status changed",
		zap.Uint64("user_id", user.ID),
		zap.Bool("active", active),
		zap.Uint64("by", caller.UserID),
	)
	return user, []notify.Effect{notify.AccountStatus(user, active, caller.UserID)}, nil
}

// DeleteUser soft-deletes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, caller authz.Caller, id uint64) error {
	if err := authz.CanManageUsers(caller); err != nil {
		return err
	}
	if id == caller.UserID {
		return apierrors.Validation("You cannot delete yourself.")
	}

	user, err := s.store.Users().FindByID(ctx, id, false)
	if err != nil {
		return lookupErr(err, "User")
	}

	user.MarkDeleted(caller.UserID, s.now())
	user.RefreshToken = ""
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.Uint64("user_id", user.ID), zap.Uint64("by", caller.UserID))
	return nil
}

func (s *UserService) RestoreUser(ctx context.Context, caller authz.Caller, id uint64) (*models.User, error) {
	if err := authz.CanManageUsers(caller); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, id, true)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	if !user.IsDeleted {
		return nil, apierrors.NotFound("User not found.")
	}

	user.Restore()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	s.logger.Info("user restored", zap.Uint64("user_id", user.ID), zap.Uint64("by", caller.UserID))
	return user, nil
}

// SeedAdminInput describes the bootstrap administrator.
type SeedAdminInput struct {
	Email    string
	Password string
	Fname    string
	Lname    string
}

// SeedAdmin creates an admin account with a chosen password. It runs outside any
// request, so there is no caller. An existing account with the email is left
// untouched and reported with created=false.
func (s *UserService) SeedAdmin(ctx context.Context, input SeedAdminInput) (*models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fname := strings.TrimSpace(input.Fname)
	if email == "" || fname == "" {
		return nil, false, apierrors.Validation("Email and First Name are required.")
	}
	if err := checkPassword(input.Password); err != nil {
		return nil, false, err
	}

	existing, err := s.store.Users().FindByEmail(ctx, email, true)
	switch {
	case err == nil:
		return existing, false, nil
	case !isNotFound(err):
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := hashSecret(input.Password, s.bcryptCost)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	user := &models.User{
		Email:              email,
		Fname:              fname,
		Lname:              strings.TrimSpace(input.Lname),
		PasswordHash:       hash,
		GlobalRole:         models.RoleAdmin,
		IsActive:           true,
		LastPasswordChange: &now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	s.logger.Info("admin seeded", zap.Uint64("user_id", user.ID))
	return user, true, nil
}
