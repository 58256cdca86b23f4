package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	adminSubject = "admin"
	issuer       = "tonetuner"
)

// ErrTokensDisabled is returned by Issue when no signing secret is configured.
var ErrTokensDisabled = errors.New("admin tokens are disabled")

type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AdminClaims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and validates short-lived admin access tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenManager returns a manager signing with secret. An empty secret
// yields a manager that issues nothing and rejects every token.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &TokenManager{secret: []byte(secret), expiry: expiry, now: time.Now}
}

func (m *TokenManager) Enabled() bool { return len(m.secret) > 0 }

func (m *TokenManager) Issue() (*Token, error) {
	if !m.Enabled() {
		return nil, ErrTokensDisabled
	}

	now := m.now()
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminSubject,
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("signing admin token: %w", err)
	}

	return &Token{AccessToken: signed, ExpiresIn: int64(m.expiry.Seconds())}, nil
}

func (m *TokenManager) Validate(tokenStr string) (*AdminClaims, error) {
	if !m.Enabled() {
		return nil, ErrTokensDisabled
	}

	token, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parsing admin token: %w", err)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid || claims.Subject != adminSubject {
		return nil, fmt.Errorf("invalid admin token claims")
	}

	return claims, nil
}
