package nats

import (
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
)

func TestConsumerSpec_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := ConsumerSpec{Name: "usage-ledger", FilterSubject: SubjectRewritePrefix}.config()

		assert.Equal(t, "usage-ledger", cfg.Durable)
		assert.Equal(t, "tonetuner usage-ledger", cfg.Description)
		assert.Equal(t, SubjectRewritePrefix, cfg.FilterSubject)
		assert.Equal(t, jetstream.AckExplicitPolicy, cfg.AckPolicy)
		assert.Equal(t, DefaultMaxDeliver, cfg.MaxDeliver)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := ConsumerSpec{Name: "audit", Description: "audit trail", MaxDeliver: 2}.config()

		assert.Equal(t, "audit trail", cfg.Description)
		assert.Equal(t, 2, cfg.MaxDeliver)
	})
}
