package usage

import (
	"time"

	"github.com/google/uuid"
)

// Entry matches the rewrite_log table.
type Entry struct {
	ID               uuid.UUID `json:"id"`
	TelegramID       string    `json:"telegram_id"`
	Tone             string    `json:"tone"`
	Status           string    `json:"status"`
	LatencyMs        int64     `json:"latency_ms"`
	Attempts         int       `json:"attempts"`
	InputChars       int       `json:"input_chars"`
	OutputChars      int       `json:"output_chars"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
