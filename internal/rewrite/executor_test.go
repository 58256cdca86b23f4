package rewrite

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonetuner/tonetuner/internal/llm/openai"
)

type scriptedCompleter struct {
	mu       sync.Mutex
	calls    int
	failures []error
	resp     *openai.ChatResponse
	requests []openai.ChatRequest
}

func (c *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	c.calls++
	if c.calls <= len(c.failures) {
		return nil, c.failures[c.calls-1]
	}
	return c.resp, nil
}

func okResponse(content string) *openai.ChatResponse {
	return &openai.ChatResponse{
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: content}}},
		Usage:   &openai.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28},
	}
}

func fastConfig() ExecutorConfig {
	return ExecutorConfig{Model: "gpt-4o-mini", Timeout: time.Second, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestExecutor_Success(t *testing.T) {
	c := &scriptedCompleter{resp: okResponse("  Добрый день!  ")}
	e := NewExecutor(c, nil, fastConfig())

	res, err := e.Rewrite(context.Background(), Job{ID: "1", Text: "привет", Tone: ToneBusiness, Locale: LocaleRU})
	require.NoError(t, err)

	assert.Equal(t, "Добрый день!", res.Text)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28}, res.Usage)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))

	require.Len(t, c.requests, 1)
	req := c.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, DefaultTones[LocaleRU][ToneBusiness])
	assert.Equal(t, "Text to rewrite: привет", req.Messages[1].Content)
}

func TestExecutor_RetriesTransientFailures(t *testing.T) {
	unavailable := &openai.APIError{Status: http.StatusServiceUnavailable, Message: "overloaded"}
	c := &scriptedCompleter{failures: []error{unavailable, unavailable}, resp: okResponse("done")}
	e := NewExecutor(c, nil, fastConfig())

	res, err := e.Rewrite(context.Background(), Job{Text: "x", Tone: ToneFriendly})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, c.calls)
}

func TestExecutor_NonRetryableFailsOnce(t *testing.T) {
	badKey := &openai.APIError{Status: http.StatusUnauthorized, Type: "invalid_request_error", Message: "bad key"}
	c := &scriptedCompleter{failures: []error{badKey}, resp: okResponse("never")}
	e := NewExecutor(c, nil, fastConfig())

	_, err := e.Rewrite(context.Background(), Job{Text: "x", Tone: ToneFriendly})
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Same(t, badKey, apiErr)
	assert.Equal(t, 1, c.calls)
}

func TestExecutor_ExhaustedRetriesReturnLastError(t *testing.T) {
	limited := &openai.APIError{Status: http.StatusTooManyRequests, Type: "rate_limit_error", Message: "slow down"}
	c := &scriptedCompleter{failures: []error{limited, limited, limited}, resp: okResponse("never")}
	e := NewExecutor(c, nil, fastConfig())

	_, err := e.Rewrite(context.Background(), Job{Text: "x", Tone: ToneFriendly})
	assert.Same(t, limited, err)
	assert.Equal(t, 3, c.calls)
}

func TestExecutor_MissingUsageAndChoices(t *testing.T) {
	c := &scriptedCompleter{resp: &openai.ChatResponse{}}
	e := NewExecutor(c, nil, fastConfig())

	res, err := e.Rewrite(context.Background(), Job{Text: "x", Tone: "pirate"})
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, Usage{}, res.Usage)
	assert.Contains(t, c.requests[0].Messages[0].Content, "pirate")
}

func TestNewExecutor_Defaults(t *testing.T) {
	e := NewExecutor(&scriptedCompleter{}, nil, ExecutorConfig{})
	assert.Equal(t, "gpt-4o-mini", e.cfg.Model)
	assert.Equal(t, 60*time.Second, e.cfg.Timeout)
}
