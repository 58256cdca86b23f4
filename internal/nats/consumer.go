package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DefaultMaxDeliver bounds redelivery of an event that keeps failing, so
	// a malformed payload cannot pin a consumer forever.
	DefaultMaxDeliver = 5
	defaultAckWait    = 30 * time.Second
)

// ConsumerSpec describes a durable pull consumer on the events stream.
type ConsumerSpec struct {
	Name          string
	FilterSubject string
	Description   string
	// MaxDeliver of 0 means DefaultMaxDeliver.
	MaxDeliver int
}

func (s ConsumerSpec) config() jetstream.ConsumerConfig {
	maxDeliver := s.MaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = DefaultMaxDeliver
	}
	desc := s.Description
	if desc == "" {
		desc = "tonetuner " + s.Name
	}
	return jetstream.ConsumerConfig{
		Durable:       s.Name,
		Description:   desc,
		FilterSubject: s.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       defaultAckWait,
		MaxDeliver:    maxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
}

// ConsumerManager creates durable consumers on TONETUNER_EVENTS.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// EnsureConsumer creates the consumer or updates it in place.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, spec ConsumerSpec) (jetstream.Consumer, error) {
	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, StreamEvents, spec.config())
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", spec.Name, StreamEvents, err)
	}
	return consumer, nil
}
