package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishRewrite publishes a settled rewrite on the subject matching its status.
func (p *Publisher) PublishRewrite(ctx context.Context, event RewriteEvent) error {
	subject := SubjectRewriteCompleted
	if event.Status == "failed" {
		subject = SubjectRewriteFailed
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, subject, event)
}

// PublishReferralCreated publishes a new referral pair.
func (p *Publisher) PublishReferralCreated(ctx context.Context, inviterID, invitedID string) error {
	return p.publish(ctx, SubjectReferralCreated, ReferralEvent{
		InviterID: inviterID,
		InvitedID: invitedID,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
