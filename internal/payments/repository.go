package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tonetuner/tonetuner/internal/metrics"
)

type Repository interface {
	Stats(ctx context.Context, now time.Time) (*metrics.PaymentStats, error)
	Recent(ctx context.Context, limit int) ([]Payment, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// Stats counts all payments, those created in the last 24h, and groups
// succeeded payments of the last 30 days by UTC day.
func (r *postgresRepository) Stats(ctx context.Context, now time.Time) (*metrics.PaymentStats, error) {
	s := &metrics.PaymentStats{History30d: map[string]metrics.DayTotal{}}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $1) FROM payments`,
		now.Add(-24*time.Hour),
	).Scan(&s.TotalPayments, &s.NewPayments24h)
	if err != nil {
		return nil, fmt.Errorf("counting payments: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		        COUNT(*), COALESCE(SUM(amount), 0)::float8
		 FROM payments
		 WHERE status = $1 AND created_at >= $2
		 GROUP BY day
		 ORDER BY day`,
		StatusSucceeded, now.Add(-30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("querying payment history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var t metrics.DayTotal
		if err := rows.Scan(&day, &t.Count, &t.TotalAmount); err != nil {
			return nil, fmt.Errorf("scanning payment history: %w", err)
		}
		s.History30d[day] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment history: %w", err)
	}
	return s, nil
}

// Recent returns the newest payments of any status.
func (r *postgresRepository) Recent(ctx context.Context, limit int) ([]Payment, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, telegram_id, amount::float8, currency, status, created_at
		 FROM payments
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0, limit)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TelegramID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
