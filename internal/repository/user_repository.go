package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrReplaceOTP is returned when swapping a user's OTP fails inside its transaction.
	ErrReplaceOTP = errors.New("user repository: replace otp failed")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64, includeDeleted bool) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("users", includeDeleted)).
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Scopes(database.Live("users", includeDeleted)).
		Where("LOWER(users.email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs loads every user in ids that exists
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uint64, includeDeleted bool) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Scopes(database.Live("users", includeDeleted)).
		Where("users.id IN ?", ids).
		Find(&users).Error
	return users, err
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.User{}).
			Scopes(
				database.Live("users", filter.IncludeDeleted),
				database.Search(filter.Search, "users.fname", "users.lname", "users.email"),
			)
		if filter.Role != nil {
			query = query.Where("users.global_role = ?", *filter.Role)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := base().Order("users.created_at DESC").
		Scopes(database.Window(filter.Offset, filter.Limit)).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update saves all user columns
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("ProjectAssignments", "OTPRequests").Save(user).Error
}

// EmailTaken reports whether another user, deleted or not, already uses email
func (r *GormUserRepository) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), excludeID).
		Count(&count).Error
	return count > 0, err
}

// ListAssignments returns memberships in live projects with the project preloaded
func (r *GormUserRepository) ListAssignments(ctx context.Context, userID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = project_members.project_id").
		Where("project_members.user_id = ? AND projects.is_deleted = ?", userID, false).
		Preload("Project").
		Order("project_members.assigned_at ASC").
		Find(&members).Error
	return members, err
}

// ReplaceOTP removes prior OTPs of the same purpose and stores the new one atomically
func (r *GormUserRepository) ReplaceOTP(ctx context.Context, otp *models.OTPRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND purpose = ?", otp.UserID, otp.Purpose).
			Delete(&models.OTPRequest{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrReplaceOTP, err)
		}
		if err := tx.Create(otp).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrReplaceOTP, err)
		}
		return nil
	})
}

// FindPendingOTP returns the newest unused, unexpired OTP
func (r *GormUserRepository) FindPendingOTP(ctx context.Context, userID uint64, purpose models.OTPPurpose, now time.Time) (*models.OTPRequest, error) {
	var otp models.OTPRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND used = ? AND expires_at > ?", userID, purpose, false, now).
		Order("created_at DESC").
		First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

// FindVerifiedOTP returns the newest OTP consumed at or after since
func (r *GormUserRepository) FindVerifiedOTP(ctx context.Context, userID uint64, purpose models.OTPPurpose, since time.Time) (*models.OTPRequest, error) {
	var otp models.OTPRequest
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND used = ? AND used_at >= ?", userID, purpose, true, since).
		Order("used_at DESC").
		First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

// UpdateOTP saves an OTP
func (r *GormUserRepository) UpdateOTP(ctx context.Context, otp *models.OTPRequest) error {
	return r.db.WithContext(ctx).Save(otp).Error
}

// DeleteOTPs removes every OTP of a purpose for the user
func (r *GormUserRepository) DeleteOTPs(ctx context.Context, userID uint64, purpose models.OTPPurpose) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&models.OTPRequest{}).Error
}
