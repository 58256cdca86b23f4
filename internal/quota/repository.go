package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence the Limiter needs.
type Store interface {
	// Find returns nil, nil when the user has no record.
	Find(ctx context.Context, telegramID string) (*Account, error)
	CountReferrals(ctx context.Context, inviterID string) (int, error)
	// Decrement lowers daily_limit by one if it is positive and returns the
	// new value, or ErrQuotaExhausted when nothing qualified.
	Decrement(ctx context.Context, telegramID string) (int, error)
	// Refund returns one rewrite, never lifting daily_limit above the
	// ceiling derived from p and the live referral count.
	Refund(ctx context.Context, telegramID string, p Policy) (int, error)
	// AddReferral records the pair once and credits the inviter. created is
	// false when the pair already existed.
	AddReferral(ctx context.Context, inviterID, invitedID string, p Policy) (created bool, err error)
	// ResetDaily expires lapsed premium and restores every non-premium
	// allowance. It returns the number of users reset.
	ResetDaily(ctx context.Context, p Policy) (int64, error)
}

// Repository is the Postgres Store over the users and referrals tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quota Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Find(ctx context.Context, telegramID string) (*Account, error) {
	a := &Account{TelegramID: telegramID}
	err := r.pool.QueryRow(ctx,
		`SELECT is_premium, daily_limit FROM users WHERE telegram_id = $1`, telegramID,
	).Scan(&a.IsPremium, &a.DailyLimit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching quota account: %w", err)
	}
	return a, nil
}

func (r *Repository) CountReferrals(ctx context.Context, inviterID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE inviter_id = $1`, inviterID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting referrals: %w", err)
	}
	return n, nil
}

func (r *Repository) Decrement(ctx context.Context, telegramID string) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET daily_limit = daily_limit - 1,
		     last_used_at = NOW(),
		     updated_at = NOW()
		 WHERE telegram_id = $1 AND daily_limit > 0
		 RETURNING daily_limit`, telegramID,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("decrementing daily limit: %w", err)
	}
	return remaining, nil
}

func (r *Repository) Refund(ctx context.Context, telegramID string, p Policy) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx,
		`UPDATE users u
		 SET daily_limit = LEAST(u.daily_limit + 1,
		         $2 + $3 * (SELECT COUNT(*) FROM referrals r WHERE r.inviter_id = u.telegram_id)),
		     updated_at = NOW()
		 WHERE u.telegram_id = $1 AND NOT u.is_premium
		 RETURNING u.daily_limit`, telegramID, p.BaseLimit, p.ReferralBonus,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("refunding daily limit: %w", err)
	}
	return remaining, nil
}

func (r *Repository) AddReferral(ctx context.Context, inviterID, invitedID string, p Policy) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning referral tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, id := range []string{inviterID, invitedID} {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (telegram_id, daily_limit) VALUES ($1, $2) ON CONFLICT (telegram_id) DO NOTHING`,
			id, p.BaseLimit); err != nil {
			return false, fmt.Errorf("ensuring user %s: %w", id, err)
		}
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO referrals (inviter_id, invited_id) VALUES ($1, $2)
		 ON CONFLICT (inviter_id, invited_id) DO NOTHING`, inviterID, invitedID)
	if err != nil {
		return false, fmt.Errorf("inserting referral: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	// Premium inviters are unlimited and earn nothing. A limit already above
	// the ceiling is left alone.
	if _, err := tx.Exec(ctx,
		`UPDATE users
		 SET daily_limit = GREATEST(daily_limit, LEAST(daily_limit + $2,
		         $3 + $2 * (SELECT COUNT(*) FROM referrals WHERE inviter_id = $1))),
		     updated_at = NOW()
		 WHERE telegram_id = $1 AND NOT is_premium`,
		inviterID, p.ReferralBonus, p.BaseLimit); err != nil {
		return false, fmt.Errorf("crediting inviter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing referral: %w", err)
	}
	return true, nil
}

func (r *Repository) ResetDaily(ctx context.Context, p Policy) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning reset tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`UPDATE users
		 SET is_premium = FALSE, premium_until = NULL, updated_at = NOW()
		 WHERE is_premium AND premium_until IS NOT NULL AND premium_until < NOW()`); err != nil {
		return 0, fmt.Errorf("expiring premium: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE users u
		 SET daily_limit = $1 + $2 * (SELECT COUNT(*) FROM referrals r WHERE r.inviter_id = u.telegram_id),
		     updated_at = NOW()
		 WHERE NOT u.is_premium`,
		p.BaseLimit, p.ReferralBonus)
	if err != nil {
		return 0, fmt.Errorf("resetting daily limits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing reset: %w", err)
	}
	return tag.RowsAffected(), nil
}
