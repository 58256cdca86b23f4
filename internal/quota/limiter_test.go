package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the Postgres statements closely enough to exercise the
// Limiter without a database.
type memStore struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	referrals map[[2]string]bool
	err       error
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*Account{}, referrals: map[[2]string]bool{}}
}

func (m *memStore) put(id string, premium bool, limit int) {
	m.accounts[id] = &Account{TelegramID: id, IsPremium: premium, DailyLimit: limit}
}

func (m *memStore) countLocked(inviter string) int {
	n := 0
	for pair := range m.referrals {
		if pair[0] == inviter {
			n++
		}
	}
	return n
}

func (m *memStore) Find(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CountReferrals(_ context.Context, inviter string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(inviter), nil
}

func (m *memStore) Decrement(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DailyLimit <= 0 {
		return 0, ErrQuotaExhausted
	}
	a.DailyLimit--
	return a.DailyLimit, nil
}

func (m *memStore) Refund(_ context.Context, id string, p Policy) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.IsPremium {
		return 0, nil
	}
	a.DailyLimit = min(a.DailyLimit+1, p.Max(m.countLocked(id)))
	return a.DailyLimit, nil
}

func (m *memStore) AddReferral(_ context.Context, inviter, invited string, p Policy) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range []string{inviter, invited} {
		if _, ok := m.accounts[id]; !ok {
			m.accounts[id] = &Account{TelegramID: id, DailyLimit: p.BaseLimit}
		}
	}
	key := [2]string{inviter, invited}
	if m.referrals[key] {
		return false, nil
	}
	m.referrals[key] = true

	a := m.accounts[inviter]
	if !a.IsPremium {
		a.DailyLimit = max(a.DailyLimit, min(a.DailyLimit+p.ReferralBonus, p.Max(m.countLocked(inviter))))
	}
	return true, nil
}

func (m *memStore) ResetDaily(_ context.Context, p Policy) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.accounts {
		if a.IsPremium {
			continue
		}
		a.DailyLimit = p.Max(m.countLocked(id))
		n++
	}
	return n, nil
}

var testPolicy = Policy{BaseLimit: 5, ReferralBonus: 2}

func TestGetLimits_MissingUser(t *testing.T) {
	l := NewLimiter(newMemStore(), testPolicy)

	limits, err := l.GetLimits(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, limits.IsPremium)
	assert.Equal(t, 5, limits.Limit)
	assert.Nil(t, limits.DailyLimit)
	assert.True(t, limits.HasRemaining())
}

func TestGetLimits_MissingUserIsNotCreated(t *testing.T) {
	store := newMemStore()
	l := NewLimiter(store, testPolicy)

	_, err := l.GetLimits(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, store.accounts)
}

func TestGetLimits_Premium(t *testing.T) {
	store := newMemStore()
	store.put("1", true, 0)
	l := NewLimiter(store, testPolicy)

	limits, err := l.GetLimits(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, limits.IsPremium)
	assert.True(t, limits.Unlimited)
	assert.True(t, limits.HasRemaining())
}

func TestGetLimits_CountsReferrals(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 3)
	store.referrals[[2]string{"1", "a"}] = true
	store.referrals[[2]string{"1", "b"}] = true
	store.referrals[[2]string{"2", "c"}] = true
	l := NewLimiter(store, testPolicy)

	limits, err := l.GetLimits(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 9, limits.Limit)
	require.NotNil(t, limits.DailyLimit)
	assert.Equal(t, 3, *limits.DailyLimit)
}

func TestGetLimits_ZeroRemaining(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 0)
	l := NewLimiter(store, testPolicy)

	limits, err := l.GetLimits(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, limits.HasRemaining())
}

func TestGetLimits_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	l := NewLimiter(store, testPolicy)

	_, err := l.GetLimits(context.Background(), "1")
	assert.Error(t, err)
}

func TestDecrement_NeverGoesNegative(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 1)
	l := NewLimiter(store, testPolicy)
	ctx := context.Background()

	remaining, err := l.Decrement(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = l.Decrement(ctx, "1")
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, 0, store.accounts["1"].DailyLimit)
}

func TestDecrement_ConcurrentCallersCannotOverspend(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 3)
	l := NewLimiter(store, testPolicy)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Decrement(context.Background(), "1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 0, store.accounts["1"].DailyLimit)
}

func TestRefund_CappedAtCeiling(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 6)
	store.referrals[[2]string{"1", "a"}] = true
	l := NewLimiter(store, testPolicy)
	ctx := context.Background()

	remaining, err := l.Refund(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)

	remaining, err = l.Refund(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
}

func TestGetLimits_RepeatedReadsAreStable(t *testing.T) {
	store := newMemStore()
	store.put("premium", true, 0)
	store.put("free", false, 4)
	store.referrals[[2]string{"free", "a"}] = true
	store.referrals[[2]string{"free", "b"}] = true
	l := NewLimiter(store, testPolicy)
	ctx := context.Background()

	for _, id := range []string{"missing", "premium", "free"} {
		t.Run(id, func(t *testing.T) {
			first, err := l.GetLimits(ctx, id)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				again, err := l.GetLimits(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
		})
	}

	assert.Len(t, store.accounts, 2, "reads must not create records")
	assert.Equal(t, 4, store.accounts["free"].DailyLimit)
	assert.Equal(t, 0, store.accounts["premium"].DailyLimit)
	assert.Len(t, store.referrals, 2)
}

func TestAddReferral_CreditsInviterOnce(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 2)
	l := NewLimiter(store, testPolicy)
	ctx := context.Background()

	created, err := l.AddReferral(ctx, "1", "2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 4, store.accounts["1"].DailyLimit)
	assert.Equal(t, 5, store.accounts["2"].DailyLimit)

	created, err = l.AddReferral(ctx, "1", "2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, store.accounts["1"].DailyLimit)
}

func TestAddReferral_CappedAtCeiling(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 6)
	l := NewLimiter(store, testPolicy)

	_, err := l.AddReferral(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, 7, store.accounts["1"].DailyLimit)
}

func TestAddReferral_PremiumInviterUnchanged(t *testing.T) {
	store := newMemStore()
	store.put("1", true, 0)
	l := NewLimiter(store, testPolicy)

	created, err := l.AddReferral(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, store.accounts["1"].DailyLimit)
}

func TestAddReferral_SelfReferralRejected(t *testing.T) {
	store := newMemStore()
	l := NewLimiter(store, testPolicy)

	_, err := l.AddReferral(context.Background(), "1", "1")
	assert.ErrorIs(t, err, ErrSelfReferral)
	assert.Empty(t, store.referrals)
}

func TestResetDaily_RestoresCeiling(t *testing.T) {
	store := newMemStore()
	store.put("1", false, 0)
	store.put("2", false, 3)
	store.put("3", true, 0)
	store.referrals[[2]string{"1", "x"}] = true
	l := NewLimiter(store, testPolicy)

	n, err := l.ResetDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 7, store.accounts["1"].DailyLimit)
	assert.Equal(t, 5, store.accounts["2"].DailyLimit)
	assert.Equal(t, 0, store.accounts["3"].DailyLimit)

	n, err = l.ResetDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 7, store.accounts["1"].DailyLimit)
}

func TestPolicyMax(t *testing.T) {
	for referrals, want := range map[int]int{0: 5, 1: 7, 4: 13} {
		assert.Equal(t, want, testPolicy.Max(referrals))
	}
}
