package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a bot submitter keyed by Telegram ID.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TelegramID   string     `json:"telegram_id"`
	IsPremium    bool       `json:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
	DailyLimit   int        `json:"daily_limit"`
	Language     string     `json:"language"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type SetLanguageRequest struct {
	Language string `json:"language" validate:"required,oneof=ru tj uz kz"`
}
