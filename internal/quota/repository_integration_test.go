//go:build integration

package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetuner/tonetuner/internal/testutil"
)

func TestRepository_Postgres(t *testing.T) {
	pool := testutil.StartPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	seed := func(t *testing.T, id string, premium bool, limit int) {
		t.Helper()
		_, err := pool.Exec(ctx,
			`INSERT INTO users (telegram_id, is_premium, daily_limit) VALUES ($1, $2, $3)`, id, premium, limit)
		require.NoError(t, err)
	}

	t.Run("find missing", func(t *testing.T) {
		testutil.Truncate(t, pool, "users")
		acct, err := repo.Find(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, acct)
	})

	t.Run("decrement stops at zero", func(t *testing.T) {
		testutil.Truncate(t, pool, "users")
		seed(t, "1", false, 1)

		remaining, err := repo.Decrement(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)

		_, err = repo.Decrement(ctx, "1")
		assert.ErrorIs(t, err, ErrQuotaExhausted)
	})

	t.Run("concurrent decrements", func(t *testing.T) {
		testutil.Truncate(t, pool, "users")
		seed(t, "1", false, 5)

		var wg sync.WaitGroup
		var mu sync.Mutex
		ok := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Decrement(ctx, "1"); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, ok)
		acct, err := repo.Find(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 0, acct.DailyLimit)
	})

	t.Run("refund is capped at the ceiling", func(t *testing.T) {
		testutil.Truncate(t, pool, "users", "referrals")
		seed(t, "1", false, 4)

		remaining, err := repo.Refund(ctx, "1", testPolicy)
		require.NoError(t, err)
		assert.Equal(t, 5, remaining)

		remaining, err = repo.Refund(ctx, "1", testPolicy)
		require.NoError(t, err)
		assert.Equal(t, 5, remaining)
	})

	t.Run("referral credit and reset", func(t *testing.T) {
		testutil.Truncate(t, pool, "users", "referrals")
		seed(t, "1", false, 2)

		created, err := repo.AddReferral(ctx, "1", "2", testPolicy)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.AddReferral(ctx, "1", "2", testPolicy)
		require.NoError(t, err)
		assert.False(t, created)

		acct, err := repo.Find(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 4, acct.DailyLimit)

		n, err := repo.CountReferrals(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		invited, err := repo.Find(ctx, "2")
		require.NoError(t, err)
		require.NotNil(t, invited)
		assert.Equal(t, 5, invited.DailyLimit)

		reset, err := repo.ResetDaily(ctx, testPolicy)
		require.NoError(t, err)
		assert.Equal(t, int64(2), reset)

		acct, err = repo.Find(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 7, acct.DailyLimit)
	})

	t.Run("reset expires lapsed premium", func(t *testing.T) {
		testutil.Truncate(t, pool, "users", "referrals")
		_, err := pool.Exec(ctx,
			`INSERT INTO users (telegram_id, is_premium, premium_until, daily_limit)
			 VALUES ('p', TRUE, NOW() - INTERVAL '1 day', 0)`)
		require.NoError(t, err)

		_, err = repo.ResetDaily(ctx, testPolicy)
		require.NoError(t, err)

		acct, err := repo.Find(ctx, "p")
		require.NoError(t, err)
		assert.False(t, acct.IsPremium)
		assert.Equal(t, 5, acct.DailyLimit)
	})
}
