package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tonetuner/tonetuner/internal/metrics"
	inats "github.com/tonetuner/tonetuner/internal/nats"
	"github.com/tonetuner/tonetuner/internal/quota"
	"github.com/tonetuner/tonetuner/internal/session"
	"github.com/tonetuner/tonetuner/internal/users"
)

const settleTimeout = 5 * time.Second

// UserStore is satisfied by *users.Service.
type UserStore interface {
	GetOrCreate(ctx context.Context, telegramID string) (*users.User, error)
}

// QuotaLimiter is satisfied by *quota.Limiter.
type QuotaLimiter interface {
	GetLimits(ctx context.Context, telegramID string) (*quota.Limits, error)
	Decrement(ctx context.Context, telegramID string) (int, error)
	Refund(ctx context.Context, telegramID string) (int, error)
	Reject(telegramID string)
}

// Enqueuer is satisfied by *Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) (*Result, error)
}

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	PublishRewrite(ctx context.Context, event inats.RewriteEvent) error
}

// ErrorRecorder is satisfied by *metrics.Recorder.
type ErrorRecorder interface {
	RecordError(ctx context.Context) error
}

// LatencyObserver is satisfied by *metrics.LatencyMonitor.
type LatencyObserver interface {
	Observe(ms int64) *metrics.LatencyStats
}

// ServiceDeps wires a Service. Sessions, Latency and Events may be nil.
type ServiceDeps struct {
	Users    UserStore
	Quota    QuotaLimiter
	Queue    Enqueuer
	Errors   ErrorRecorder
	Sessions session.Store
	Latency  LatencyObserver
	Events   EventPublisher
}

// Service runs a submission end to end: user record, quota reservation,
// queued execution, settlement.
type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

type settled struct {
	result *Result
	err    error
}

// Rewrite handles one submission. A free user's rewrite is reserved with
// the conditional decrement before the job is queued, so concurrent
// submissions can never spend more than the remaining allowance. It returns
// ErrQuotaExceeded without touching the queue when nothing is left.
func (s *Service) Rewrite(ctx context.Context, req Request) (*Response, error) {
	text, err := s.resolveText(ctx, req)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Users.GetOrCreate(ctx, req.TelegramID)
	if err != nil {
		s.recordError(ctx)
		return nil, fmt.Errorf("loading user: %w", err)
	}

	limits, err := s.deps.Quota.GetLimits(ctx, req.TelegramID)
	if err != nil {
		s.recordError(ctx)
		return nil, fmt.Errorf("loading limits: %w", err)
	}

	if !limits.HasRemaining() {
		s.deps.Quota.Reject(req.TelegramID)
		return nil, ErrQuotaExceeded
	}

	var remaining int
	if !limits.Unlimited {
		remaining, err = s.deps.Quota.Decrement(ctx, req.TelegramID)
		if errors.Is(err, quota.ErrQuotaExhausted) {
			s.deps.Quota.Reject(req.TelegramID)
			return nil, ErrQuotaExceeded
		}
		if err != nil {
			s.recordError(ctx)
			return nil, fmt.Errorf("reserving quota: %w", err)
		}
	}

	locale := req.Locale
	if locale == "" {
		locale = user.Language
	}
	if !SupportedLocale(locale) {
		locale = DefaultLocale
	}

	job := Job{
		ID:         uuid.NewString(),
		Text:       text,
		Tone:       req.Tone,
		TelegramID: req.TelegramID,
		Locale:     locale,
	}

	// The job outlives a caller that gives up, so its bookkeeping is done
	// when it settles rather than when Rewrite returns.
	done := make(chan settled, 1)
	go func() {
		result, err := s.deps.Queue.Enqueue(context.WithoutCancel(ctx), job)
		s.settle(ctx, job, !limits.Unlimited, result, err)
		done <- settled{result: result, err: err}
	}()

	var out settled
	select {
	case out = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if out.err != nil {
		return nil, out.err
	}

	resp := &Response{
		Result:    out.result.Text,
		IsPremium: limits.IsPremium,
		Latency:   out.result.LatencyMs,
		Attempts:  out.result.Attempts,
	}
	if limits.Unlimited {
		resp.Remaining = Unlimited
	} else {
		initial := limits.Limit
		resp.InitialLimit = &initial
		resp.Remaining = remaining
	}

	if s.deps.Sessions != nil {
		if err := s.deps.Sessions.DeleteMessage(ctx, req.TelegramID); err != nil {
			slog.Warn("clearing cached message", "error", err, "telegram_id", req.TelegramID)
		}
	}
	return resp, nil
}

// settle runs once per queued job: it refunds a reserved rewrite that did
// not complete and publishes the outcome.
func (s *Service) settle(ctx context.Context, job Job, reserved bool, result *Result, err error) {
	if err != nil {
		if reserved {
			s.refund(ctx, job.TelegramID)
		}
		if !errors.Is(err, ErrQueueFull) {
			s.publish(ctx, failedEvent(job, err))
		}
		return
	}

	if s.deps.Latency != nil {
		s.deps.Latency.Observe(result.LatencyMs)
	}
	s.publish(ctx, completedEvent(job, result))
}

func (s *Service) refund(ctx context.Context, telegramID string) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if _, err := s.deps.Quota.Refund(refundCtx, telegramID); err != nil {
		slog.Error("refunding quota", "error", err, "telegram_id", telegramID)
	}
}

func (s *Service) resolveText(ctx context.Context, req Request) (string, error) {
	if req.Text != "" {
		return req.Text, nil
	}
	if s.deps.Sessions == nil {
		return "", ErrNoText
	}

	text, ok, err := s.deps.Sessions.Message(ctx, req.TelegramID)
	if err != nil {
		return "", fmt.Errorf("reading cached message: %w", err)
	}
	if !ok || text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (s *Service) recordError(ctx context.Context) {
	if s.deps.Errors == nil {
		return
	}
	if err := s.deps.Errors.RecordError(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("recording rewrite error", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event inats.RewriteEvent) {
	if s.deps.Events == nil {
		return
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		defer cancel()
		if err := s.deps.Events.PublishRewrite(pubCtx, event); err != nil {
			slog.Warn("publishing rewrite event", "error", err, "job_id", event.JobID)
		}
	}()
}

func completedEvent(job Job, result *Result) inats.RewriteEvent {
	return inats.RewriteEvent{
		JobID:            job.ID,
		TelegramID:       job.TelegramID,
		Tone:             job.Tone,
		Status:           "completed",
		LatencyMs:        result.LatencyMs,
		Attempts:         result.Attempts,
		InputChars:       utf8.RuneCountInString(job.Text),
		OutputChars:      utf8.RuneCountInString(result.Text),
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		Timestamp:        time.Now().UTC(),
	}
}

func failedEvent(job Job, err error) inats.RewriteEvent {
	return inats.RewriteEvent{
		JobID:      job.ID,
		TelegramID: job.TelegramID,
		Tone:       job.Tone,
		Status:     "failed",
		InputChars: utf8.RuneCountInString(job.Text),
		Error:      err.Error(),
		Timestamp:  time.Now().UTC(),
	}
}
