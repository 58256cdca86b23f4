package rewrite

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
	ErrQueueFull = errors.New("rewrite queue is full")
	// ErrQuotaExceeded is returned when a non-premium submitter has no rewrites left today.
	ErrQuotaExceeded = errors.New("daily rewrite limit reached")
	// ErrNoText is returned when neither the request nor the session holds text.
	ErrNoText = errors.New("no text to rewrite")
)

// Job is a single rewrite request. It lives only in memory.
type Job struct {
	ID         string
	Text       string
	Tone       string
	TelegramID string
	Locale     string
	Stream     bool
}

// Usage is the token breakdown reported by the generation API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the outcome of a successful rewrite.
type Result struct {
	Text      string `json:"result"`
	LatencyMs int64  `json:"latency"`
	Attempts  int    `json:"attempts"`
	Usage     Usage  `json:"usage"`
}

// Request is the inbound submission handled by Service.
type Request struct {
	Text       string `json:"text" validate:"max=4096"`
	Tone       string `json:"tone" validate:"required,max=100"`
	TelegramID string `json:"telegramId" validate:"required,max=64"`
	Locale     string `json:"locale,omitempty" validate:"omitempty,oneof=ru tj uz kz"`
}

// Unlimited is reported as the remaining count for premium submitters.
const Unlimited = "∞"

// Response is returned to the bot layer after a successful rewrite.
// Remaining is an int for free users and Unlimited for premium users.
type Response struct {
	Result       string `json:"result"`
	Remaining    any    `json:"remaining"`
	InitialLimit *int   `json:"initialLimit,omitempty"`
	IsPremium    bool   `json:"isPremium"`
	Latency      int64  `json:"latency"`
	Attempts     int    `json:"attempts"`
}
