package payments

import (
	"time"

	"github.com/google/uuid"
)

const StatusSucceeded = "succeeded"

// Payment matches the payments table. Rows are written by the checkout
// integration; this service only reads them.
type Payment struct {
	ID         uuid.UUID `json:"id"`
	TelegramID string    `json:"telegram_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
