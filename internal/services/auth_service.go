package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/authz"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = apierrors.InvalidCredentials("Invalid credentials.")
	ErrInvalidRefresh     = apierrors.Unauthenticated("Invalid or expired refresh token.")
	ErrPasswordAlreadySet = apierrors.Validation("Password already set.")
	ErrOTPNotVerified     = apierrors.NotFound("OTP verification required first.")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	store      repository.Store
	tokens     *auth.TokenIssuer
	logger     *zap.Logger
	now        Clock
	bcryptCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, tokens *auth.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		tokens:     tokens,
		logger:     logger.Named("auth"),
		now:        time.Now,
		bcryptCost: constants.BcryptCost,
	}
}

// hashToken fingerprints a refresh token for storage; JWTs exceed bcrypt's input limit.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User           *models.User
	Tokens         *auth.TokenPair
	IsTempPassword bool
}

// Login verifies credentials, rotates the stored refresh token and issues a token pair.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, apierrors.Validation("Email and password are required.")
	}

	user, err := s.store.Users().FindByEmail(ctx, email, false)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !secretMatches(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apierrors.Forbidden(authz.MsgInactive)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.GlobalRole)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	now := s.now()
	user.RefreshToken = hashToken(pair.RefreshToken)
	user.LastActive = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user logged in", zap.Uint64("user_id", user.ID))
	return &LoginResult{User: user, Tokens: pair, IsTempPassword: user.IsTempPasswordActive}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The old refresh token stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, apierrors.Validation("Refresh token required.")
	}

	claims, err := s.tokens.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	user, err := s.store.Users().FindByID(ctx, claims.UID, false)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	stored := []byte(user.RefreshToken)
	if len(stored) == 0 || subtle.ConstantTimeCompare(stored, []byte(hashToken(refreshToken))) != 1 {
		return nil, ErrInvalidRefresh
	}

	pair, err := s.tokens.IssuePair(user.ID, user.GlobalRole)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	user.RefreshToken = hashToken(pair.RefreshToken)
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return pair, nil
}

// Authenticate resolves an access token to a live user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Parse(accessToken, auth.TokenAccess)
	if err != nil {
		return nil, apierrors.Unauthenticated("Invalid token")
	}
	user, err := s.store.Users().FindByID(ctx, claims.UID, false)
	if err != nil {
		if isNotFound(err) {
			return nil, apierrors.Unauthenticated("Token is invalid or user not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Logout forgets the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, userID uint64) error {
	return s.clearSession(ctx, userID, false)
}

// RevokeSessions forgets the refresh token and records the revocation time as last activity.
func (s *AuthService) RevokeSessions(ctx context.Context, userID uint64) (time.Time, error) {
	now := s.now()
	return now, s.clearSession(ctx, userID, true)
}

func (s *AuthService) clearSession(ctx context.Context, userID uint64, touch bool) error {
	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil {
		return lookupErr(err, "User")
	}
	user.RefreshToken = ""
	if touch {
		now := s.now()
		user.LastActive = &now
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Profile is the current user together with their live project memberships.
type Profile struct {
	User        *models.User
	Assignments []models.ProjectMember
}

// Me returns the caller's profile.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*Profile, error) {
	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	assignments, err := s.store.Users().ListAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return &Profile{User: user, Assignments: assignments}, nil
}

// Session describes the single refresh-token session a user may hold.
type Session struct {
	HasActiveSession bool
	LastActive       *time.Time
	CurrentDevice    bool
}

func (s *AuthService) Sessions(ctx context.Context, userID uint64) ([]Session, error) {
	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	return []Session{{
		HasActiveSession: user.RefreshToken != "",
		LastActive:       user.LastActive,
		CurrentDevice:    true,
	}}, nil
}

// SetNewPassword replaces a temporary password chosen by an admin.
func (s *AuthService) SetNewPassword(ctx context.Context, userID uint64, newPassword string) ([]notify.Effect, error) {
	if newPassword == "" {
		return nil, apierrors.Validation("New password is required.")
	}
	if err := checkPassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil {
		return nil, lookupErr(err, "User")
	}
	if !user.IsTempPasswordActive {
		return nil, ErrPasswordAlreadySet
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return nil, err
	}
	s.logger.Info("temporary password replaced", zap.Uint64("user_id", user.ID))
	return []notify.Effect{notify.PasswordChanged(user)}, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := hashSecret(password, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.now()
	user.PasswordHash = hash
	user.IsTempPasswordActive = false
	user.LastPasswordChange = &now
	if err := s.store.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a fresh reset OTP. Unknown emails produce no effect and no error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) ([]notify.Effect, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apierrors.Validation("Email is required.")
	}

	user, err := s.store.Users().FindByEmail(ctx, email, false)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	code, err := utils.GenerateOTP(constants.OTPLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}
	hash, err := hashSecret(code, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	otp := &models.OTPRequest{
		UserID:    user.ID,
		Code:      hash,
		Purpose:   models.OTPPurposePasswordReset,
		ExpiresAt: s.now().Add(constants.OTPExpiry),
	}
	if err := s.store.Users().ReplaceOTP(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	s.logger.Info("password reset requested", zap.Uint64("user_id", user.ID))
	return []notify.Effect{notify.PasswordResetOTP(user, code)}, nil
}

// VerifyPasswordReset consumes the pending reset OTP.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, email, code string) error {
	if strings.TrimSpace(email) == "" || code == "" {
		return apierrors.Validation("Email and OTP are required.")
	}

	user, err := s.store.Users().FindByEmail(ctx, email, false)
	if err != nil {
		if isNotFound(err) {
			return apierrors.NotFound("Invalid OTP or user not found.")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	otp, err := s.store.Users().FindPendingOTP(ctx, user.ID, models.OTPPurposePasswordReset, now)
	if err != nil {
		if isNotFound(err) {
			return apierrors.NotFound("OTP not found or expired.")
		}
		return fmt.Errorf("failed to find otp: %w", err)
	}
	if !secretMatches(otp.Code, code) {
		return apierrors.NotFound("Invalid OTP.")
	}

	otp.Used = true
	otp.UsedAt = &now
	if err := s.store.Users().UpdateOTP(ctx, otp); err != nil {
		return fmt.Errorf("failed to update otp: %w", err)
	}
	return nil
}

// ChangePasswordInput completes the reset flow.
type ChangePasswordInput struct {
	Email       string
	OTP         string
	NewPassword string
}

// ChangePassword sets a new password when the same OTP was verified within the grace window.
// All sessions are revoked.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) ([]notify.Effect, error) {
	if strings.TrimSpace(input.Email) == "" || input.OTP == "" || input.NewPassword == "" {
		return nil, apierrors.Validation("Email, OTP, and new password are required.")
	}
	if err := checkPassword(input.NewPassword); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByEmail(ctx, input.Email, false)
	if err != nil {
		if isNotFound(err) {
			return nil, apierrors.NotFound("Invalid request.")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	since := s.now().Add(-constants.OTPVerifiedGrace)
	otp, err := s.store.Users().FindVerifiedOTP(ctx, user.ID, models.OTPPurposePasswordReset, since)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrOTPNotVerified
		}
		return nil, fmt.Errorf("failed to find otp: %w", err)
	}
	if !secretMatches(otp.Code, input.OTP) {
		return nil, ErrOTPNotVerified
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		hash, err := hashSecret(input.NewPassword, s.bcryptCost)
		if err != nil {
			return err
		}
		now := s.now()
		user.PasswordHash = hash
		user.IsTempPasswordActive = false
		user.LastPasswordChange = &now
		user.RefreshToken = ""
		if err := tx.Users().Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Users().DeleteOTPs(ctx, user.ID, models.OTPPurposePasswordReset); err != nil {
			return fmt.Errorf("failed to clear otps: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("password changed through reset", zap.Uint64("user_id", user.ID))
	return []notify.Effect{notify.PasswordChanged(user)}, nil
}
