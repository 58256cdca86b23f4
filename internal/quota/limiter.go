package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonetuner/tonetuner/internal/metrics"
)

// Limiter answers "may this user rewrite now" and keeps the daily
// allowance in step with referrals.
type Limiter struct {
	store  Store
	policy Policy
}

// NewLimiter creates a Limiter over store.
func NewLimiter(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy}
}

// GetLimits reads the allowance without creating a record.
func (l *Limiter) GetLimits(ctx context.Context, telegramID string) (*Limits, error) {
	acct, err := l.store.Find(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return &Limits{Limit: l.policy.BaseLimit}, nil
	}
	if acct.IsPremium {
		return &Limits{IsPremium: true, Unlimited: true}, nil
	}

	referrals, err := l.store.CountReferrals(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	remaining := acct.DailyLimit
	return &Limits{
		Limit:      l.policy.Max(referrals),
		DailyLimit: &remaining,
	}, nil
}

// Decrement consumes one rewrite from today's allowance. It is the
// admission gate for free users: ErrQuotaExhausted means the rewrite must
// not run.
func (l *Limiter) Decrement(ctx context.Context, telegramID string) (int, error) {
	remaining, err := l.store.Decrement(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	slog.Debug("quota decremented", "telegram_id", telegramID, "remaining", remaining)
	return remaining, nil
}

// Refund gives back a rewrite reserved by Decrement whose job failed.
func (l *Limiter) Refund(ctx context.Context, telegramID string) (int, error) {
	remaining, err := l.store.Refund(ctx, telegramID, l.policy)
	if err != nil {
		return 0, err
	}
	slog.Debug("quota refunded", "telegram_id", telegramID, "remaining", remaining)
	return remaining, nil
}

// Reject counts a request turned away for exhausted quota.
func (l *Limiter) Reject(telegramID string) {
	metrics.QuotaRejectionsTotal.Inc()
	slog.Info("rewrite rejected, quota exhausted", "telegram_id", telegramID)
}

// AddReferral links invitedID to inviterID and credits the inviter.
func (l *Limiter) AddReferral(ctx context.Context, inviterID, invitedID string) (bool, error) {
	if inviterID == invitedID {
		return false, ErrSelfReferral
	}

	created, err := l.store.AddReferral(ctx, inviterID, invitedID, l.policy)
	if err != nil {
		return false, fmt.Errorf("adding referral: %w", err)
	}
	if created {
		slog.Info("referral added", "inviter_id", inviterID, "invited_id", invitedID)
	} else {
		slog.Info("referral already exists", "inviter_id", inviterID, "invited_id", invitedID)
	}
	return created, nil
}

// ResetDaily restores every non-premium allowance to its current ceiling.
func (l *Limiter) ResetDaily(ctx context.Context) (int64, error) {
	start := time.Now()
	slog.Info("daily limit reset started")

	n, err := l.store.ResetDaily(ctx, l.policy)
	if err != nil {
		slog.Error("daily limit reset failed", "error", err)
		return 0, err
	}

	slog.Info("daily limit reset finished", "users", n, "duration", time.Since(start))
	return n, nil
}
