package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const tempPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

func randomFrom(charset string, n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}

// GenerateTempPassword returns a random password of the given length that
// always satisfies ValidatePasswordStrength.
func GenerateTempPassword(length int) (string, error) {
	for {
		pw, err := randomFrom(tempPasswordCharset, length)
		if err != nil {
			return "", err
		}
		if ValidatePasswordStrength(pw) == nil {
			return pw, nil
		}
	}
}

// GenerateOTP returns a numeric code with exactly digits characters and no leading zero.
func GenerateOTP(digits int) (string, error) {
	first, err := randomFrom("123456789", 1)
	if err != nil {
		return "", err
	}
	rest, err := randomFrom("0123456789", digits-1)
	if err != nil {
		return "", err
	}
	return first + rest, nil
}
