package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "admin-secret-32-chars-long!!!!!!"

func TestTokenManager_IssueAndValidate(t *testing.T) {
	mgr := NewTokenManager(testSecret, 15*time.Minute)

	t.Run("issue and validate", func(t *testing.T) {
		tok, err := mgr.Issue()
		require.NoError(t, err)
		assert.NotEmpty(t, tok.AccessToken)
		assert.Equal(t, int64(900), tok.ExpiresIn)

		claims, err := mgr.Validate(tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Subject)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("garbage fails validation", func(t *testing.T) {
		_, err := mgr.Validate("invalid-token")
		assert.Error(t, err)
	})

	t.Run("other secret fails", func(t *testing.T) {
		other := NewTokenManager("another-secret-32-chars-long!!!!", time.Minute)
		tok, err := other.Issue()
		require.NoError(t, err)
		_, err = mgr.Validate(tok.AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired token fails", func(t *testing.T) {
		shortMgr := NewTokenManager(testSecret, time.Minute)
		shortMgr.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
		tok, err := shortMgr.Issue()
		require.NoError(t, err)

		_, err = mgr.Validate(tok.AccessToken)
		assert.Error(t, err)
	})

	t.Run("wrong subject fails", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = mgr.Validate(signed)
		assert.Error(t, err)
	})
}

func TestTokenManager_Disabled(t *testing.T) {
	mgr := NewTokenManager("", time.Minute)
	assert.False(t, mgr.Enabled())

	_, err := mgr.Issue()
	assert.ErrorIs(t, err, ErrTokensDisabled)
	_, err = mgr.Validate("anything")
	assert.ErrorIs(t, err, ErrTokensDisabled)
}
