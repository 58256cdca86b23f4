package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every domain event.
const StreamEvents = "TONETUNER_EVENTS"

// Subject constants.
const (
	SubjectEventsAll        = "tonetuner.events.>"
	SubjectRewritePrefix    = "tonetuner.events.rewrite.>"
	SubjectRewriteCompleted = "tonetuner.events.rewrite.completed"
	SubjectRewriteFailed    = "tonetuner.events.rewrite.failed"
	SubjectReferralCreated  = "tonetuner.events.referral.created"
)

// RewriteEvent is published once per settled rewrite job.
type RewriteEvent struct {
	JobID            string    `json:"job_id"`
	TelegramID       string    `json:"telegram_id"`
	Tone             string    `json:"tone"`
	Status           string    `json:"status"` // completed, failed
	LatencyMs        int64     `json:"latency_ms"`
	Attempts         int       `json:"attempts"`
	InputChars       int       `json:"input_chars"`
	OutputChars      int       `json:"output_chars"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ReferralEvent is published when a new inviter/invited pair is recorded.
type ReferralEvent struct {
	InviterID string    `json:"inviter_id"`
	InvitedID string    `json:"invited_id"`
	Timestamp time.Time `json:"timestamp"`
}
