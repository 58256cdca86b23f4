package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonetuner/tonetuner/internal/metrics"
)

type Repository interface {
	GetByTelegramID(ctx context.Context, telegramID string) (*User, error)
	GetOrCreate(ctx context.Context, telegramID string, dailyLimit int) (*User, error)
	SetLanguage(ctx context.Context, telegramID, language string) error
	Stats(ctx context.Context, now time.Time) (*metrics.UserStats, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, telegram_id, is_premium, premium_until, daily_limit, language, last_used_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.TelegramID, &u.IsPremium, &u.PremiumUntil, &u.DailyLimit,
		&u.Language, &u.LastUsedAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by telegram id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, telegramID string, dailyLimit int) (*User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (telegram_id, daily_limit) VALUES ($1, $2) ON CONFLICT (telegram_id) DO NOTHING`,
		telegramID, dailyLimit)
	if err != nil {
		return nil, fmt.Errorf("ensuring user: %w", err)
	}

	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID))
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) SetLanguage(ctx context.Context, telegramID, language string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET language = $2, updated_at = NOW() WHERE telegram_id = $1`,
		telegramID, language)
	if err != nil {
		return fmt.Errorf("updating user language: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Stats(ctx context.Context, now time.Time) (*metrics.UserStats, error) {
	startToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var s metrics.UserStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE last_used_at >= $1),
		       COUNT(*) FILTER (WHERE last_used_at >= $2),
		       COUNT(*) FILTER (WHERE last_used_at >= $3),
		       COUNT(*) FILTER (WHERE is_premium)
		FROM users`,
		startToday, now.Add(-7*24*time.Hour), now.Add(-30*24*time.Hour),
	).Scan(&s.Total, &s.ActiveToday, &s.Active7d, &s.Active30d, &s.Premium)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	return &s, nil
}
