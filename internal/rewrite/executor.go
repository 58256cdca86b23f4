package rewrite

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tonetuner/tonetuner/internal/llm/openai"
	"github.com/tonetuner/tonetuner/internal/metrics"
	"github.com/tonetuner/tonetuner/internal/retry"
)

// Completer is the generation endpoint. *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
}

// ExecutorConfig holds the outbound call policy.
type ExecutorConfig struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Executor formats a rewrite prompt and calls the generation API under the
// retry policy.
type Executor struct {
	client Completer
	tones  ToneResolver
	cfg    ExecutorConfig
}

// NewExecutor creates an Executor. A nil resolver uses DefaultTones.
func NewExecutor(client Completer, tones ToneResolver, cfg ExecutorConfig) *Executor {
	if tones == nil {
		tones = DefaultTones
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Executor{client: client, tones: tones, cfg: cfg}
}

// Rewrite runs one job. Upstream errors are returned unchanged once the
// retry policy gives up.
func (e *Executor) Rewrite(ctx context.Context, job Job) (*Result, error) {
	label := e.tones.Label(job.Tone, job.Locale)
	req := openai.ChatRequest{
		Model:    e.cfg.Model,
		Messages: BuildMessages(job.Text, label),
	}

	slog.Debug("openai request",
		"job_id", job.ID,
		"model", req.Model,
		"messages", len(req.Messages),
		"tone", job.Tone,
		"locale", job.Locale,
	)

	attempts := 1
	start := time.Now()

	resp, err := retry.Do(ctx, func(ctx context.Context) (*openai.ChatResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		return e.client.CreateChatCompletion(callCtx, req)
	}, retry.Options{
		MaxRetries: e.cfg.MaxRetries,
		Delay:      e.cfg.RetryDelay,
		OnRetry: func(attempt int, err error) {
			attempts = attempt + 1
			metrics.RewriteRetriesTotal.Inc()
			slog.Warn("openai call failed, retrying",
				"job_id", job.ID,
				"attempt", attempt,
				"wait", retry.Backoff(e.cfg.RetryDelay, attempt),
				"error", err,
			)
		},
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		logUpstreamError(job, attempts, err)
		return nil, err
	}

	var usage Usage
	if resp.Usage != nil {
		usage = Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	slog.Info("openai response",
		"job_id", job.ID,
		"choices", len(resp.Choices),
		"latency_ms", latency,
		"attempts", attempts,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.TotalTokens,
	)

	return &Result{
		Text:      resp.FirstContent(),
		LatencyMs: latency,
		Attempts:  attempts,
		Usage:     usage,
	}, nil
}

func logUpstreamError(job Job, attempts int, err error) {
	attrs := []any{"job_id", job.ID, "attempts", attempts, "code", retry.Code(err), "error", err}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.Status, "type", apiErr.Type)
	}
	slog.Error("openai rewrite failed", attrs...)
}
