package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Clock returns the current time. Services take one so tests can pin dates.
type Clock func() time.Time

// lookupErr maps a failed repository lookup to NotFound when the row is missing
// and to a wrapped internal error for anything else.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFound(what + " not found.")
	}
	return fmt.Errorf("failed to find %s: %w", strings.ToLower(what), err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// checkPassword reports the first broken strength rule, with every broken rule in details.
func checkPassword(password string) error {
	if err := utils.ValidatePasswordStrength(password); err != nil {
		return apierrors.Validation(err.Error()).WithDetails(map[string][]string{
			"password": utils.PasswordProblems(password),
		})
	}
	return nil
}

func hashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func secretMatches(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func uint64Ptr(v uint64) *uint64 { return &v }
