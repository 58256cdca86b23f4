package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/tonetuner/tonetuner/internal/nats"
)

const consumerName = "usage-ledger"

// Inserter is satisfied by *Repository.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer listens on the rewrite event subjects and persists each event to
// the usage ledger.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new usage ledger Consumer.
func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.ConsumerSpec{
		Name:          consumerName,
		FilterSubject: inats.SubjectRewritePrefix,
		Description:   "tonetuner rewrite usage ledger",
	})
	if err != nil {
		return err
	}

	slog.Info("usage consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("usage consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if err := c.handle(ctx, msg.Data()); err != nil {
				slog.Error("usage consumer: handling event", "error", err, "subject", msg.Subject())
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	var event inats.RewriteEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshaling event: %w", err)
	}

	entry := toEntry(event)
	if err := c.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("persisting entry: %w", err)
	}

	slog.Debug("usage consumer: persisted event",
		"job_id", event.JobID,
		"telegram_id", event.TelegramID,
		"status", event.Status,
	)
	return nil
}

// toEntry keys the row on the job ID when it is a UUID so redeliveries
// collapse onto one row.
func toEntry(event inats.RewriteEvent) *Entry {
	e := &Entry{
		TelegramID:       event.TelegramID,
		Tone:             event.Tone,
		Status:           event.Status,
		LatencyMs:        event.LatencyMs,
		Attempts:         event.Attempts,
		InputChars:       event.InputChars,
		OutputChars:      event.OutputChars,
		PromptTokens:     event.PromptTokens,
		CompletionTokens: event.CompletionTokens,
		ErrorMessage:     event.Error,
		CreatedAt:        event.Timestamp,
	}
	if parsed, err := uuid.Parse(event.JobID); err == nil {
		e.ID = parsed
	} else {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}
