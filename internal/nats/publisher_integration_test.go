//go:build integration

package nats_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/tonetuner/tonetuner/internal/nats"
	"github.com/tonetuner/tonetuner/internal/testutil"
)

func TestPublishAndConsume(t *testing.T) {
	client := testutil.StartNATS(t)
	ctx := context.Background()

	publisher := inats.NewPublisher(client.JetStream())
	consumerMgr := inats.NewConsumerManager(client.JetStream())

	t.Run("rewrite events land on their status subject", func(t *testing.T) {
		require.NoError(t, publisher.PublishRewrite(ctx, inats.RewriteEvent{
			JobID: "job-1", TelegramID: "42", Tone: "hype", Status: "completed", LatencyMs: 900, Attempts: 1,
		}))
		require.NoError(t, publisher.PublishRewrite(ctx, inats.RewriteEvent{
			JobID: "job-2", TelegramID: "42", Tone: "hype", Status: "failed", Error: "upstream 500",
		}))

		consumer, err := consumerMgr.EnsureConsumer(ctx, inats.ConsumerSpec{Name: "test-rewrites", FilterSubject: inats.SubjectRewritePrefix})
		require.NoError(t, err)

		msgs, err := consumer.Fetch(2, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		subjects := map[string]inats.RewriteEvent{}
		for m := range msgs.Messages() {
			var ev inats.RewriteEvent
			require.NoError(t, json.Unmarshal(m.Data(), &ev))
			subjects[m.Subject()] = ev
			_ = m.Ack()
		}

		require.Len(t, subjects, 2)
		assert.Equal(t, "job-1", subjects[inats.SubjectRewriteCompleted].JobID)
		assert.False(t, subjects[inats.SubjectRewriteCompleted].Timestamp.IsZero())
		assert.Equal(t, "upstream 500", subjects[inats.SubjectRewriteFailed].Error)
	})

	t.Run("referral events", func(t *testing.T) {
		require.NoError(t, publisher.PublishReferralCreated(ctx, "1", "2"))

		consumer, err := consumerMgr.EnsureConsumer(ctx, inats.ConsumerSpec{Name: "test-referrals", FilterSubject: inats.SubjectReferralCreated})
		require.NoError(t, err)

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		require.NoError(t, err)

		var received inats.ReferralEvent
		for m := range msgs.Messages() {
			require.NoError(t, json.Unmarshal(m.Data(), &received))
			_ = m.Ack()
		}
		assert.Equal(t, "1", received.InviterID)
		assert.Equal(t, "2", received.InvitedID)
	})

	t.Run("client is healthy", func(t *testing.T) {
		assert.True(t, client.Healthy())
	})
}
