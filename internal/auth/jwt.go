package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/models"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID  uint64            `json:"uid"`
	Role models.GlobalRole `json:"role"`
	Type TokenType         `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access and refresh tokens with separate secrets.
type TokenIssuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Now           func() time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

func (j *TokenIssuer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *TokenIssuer) keyFor(typ TokenType) ([]byte, time.Duration) {
	if typ == TokenRefresh {
		return j.RefreshSecret, j.RefreshTTL
	}
	return j.AccessSecret, j.AccessTTL
}

func (j *TokenIssuer) issue(uid uint64, role models.GlobalRole, typ TokenType) (string, error) {
	secret, ttl := j.keyFor(typ)
	now := j.now()
	claims := Claims{
		UID:  uid,
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.Issuer,
			Subject:   fmt.Sprint(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssuePair signs a fresh access and refresh token for the user.
func (j *TokenIssuer) IssuePair(uid uint64, role models.GlobalRole) (*TokenPair, error) {
	access, err := j.issue(uid, role, TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := j.issue(uid, role, TokenRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: j.AccessTTL}, nil
}

// Parse validates a token of the expected type and returns its claims.
func (j *TokenIssuer) Parse(tokenStr string, typ TokenType) (*Claims, error) {
	secret, _ := j.keyFor(typ)
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Type != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
