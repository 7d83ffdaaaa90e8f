package utils

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/yukikurage/project-management-api/internal/constants"
)

const specialCharacters = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

var commonPasswords = map[string]struct{}{
	"password": {},
	"12345678": {},
	"admin123": {},
	"qwerty":   {},
}

var (
	ErrPasswordTooShort  = fmt.Errorf("Password must be at least %d characters long.", constants.MinPasswordLength)
	ErrPasswordNoLower   = errors.New("Password must contain at least one lowercase letter.")
	ErrPasswordNoUpper   = errors.New("Password must contain at least one uppercase letter.")
	ErrPasswordNoDigit   = errors.New("Password must contain at least one number.")
	ErrPasswordNoSpecial = errors.New("Password must contain at least one special character.")
	ErrPasswordTooCommon = errors.New("Password is too common. Please choose a stronger password.")
)

// ValidatePasswordStrength returns the first rule the password breaks, or nil.
func ValidatePasswordStrength(password string) error {
	if len(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialCharacters, r):
			special = true
		}
	}

	switch {
	case !lower:
		return ErrPasswordNoLower
	case !upper:
		return ErrPasswordNoUpper
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSpecial
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return ErrPasswordTooCommon
	}
	return nil
}

// PasswordProblems lists every rule the password breaks, in check order.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < constants.MinPasswordLength {
		problems = append(problems, ErrPasswordTooShort.Error())
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialCharacters, r):
			special = true
		}
	}
	for _, rule := range []struct {
		ok  bool
		err error
	}{
		{lower, ErrPasswordNoLower},
		{upper, ErrPasswordNoUpper},
		{digit, ErrPasswordNoDigit},
		{special, ErrPasswordNoSpecial},
	} {
		if !rule.ok {
			problems = append(problems, rule.err.Error())
		}
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, ErrPasswordTooCommon.Error())
	}
	return problems
}
