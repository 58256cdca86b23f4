package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles rewrite_log PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new usage Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists one entry. Redelivered events carry the same ID and are
// ignored.
func (r *Repository) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	var errMsg *string
	if e.ErrorMessage != "" {
		errMsg = &e.ErrorMessage
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO rewrite_log (id, telegram_id, tone, status, latency_ms, attempts,
		                          input_chars, output_chars, prompt_tokens, completion_tokens,
		                          error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.TelegramID, e.Tone, e.Status, e.LatencyMs, e.Attempts,
		e.InputChars, e.OutputChars, e.PromptTokens, e.CompletionTokens,
		errMsg, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting rewrite log: %w", err)
	}
	return nil
}

// ListByTelegramID returns the most recent entries for one submitter.
func (r *Repository) ListByTelegramID(ctx context.Context, telegramID string, limit int) ([]Entry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, telegram_id, tone, status, latency_ms, attempts, input_chars, output_chars,
		        prompt_tokens, completion_tokens, COALESCE(error_message, ''), created_at
		 FROM rewrite_log
		 WHERE telegram_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rewrite log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TelegramID, &e.Tone, &e.Status, &e.LatencyMs, &e.Attempts,
			&e.InputChars, &e.OutputChars, &e.PromptTokens, &e.CompletionTokens,
			&e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning rewrite log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
