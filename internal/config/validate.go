package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if c.OpenAI.Key == "" {
		errs = append(errs, "OPENAI_KEY is required")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Rewrite pipeline
	if c.Rewrite.MaxConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("REWRITE_MAX_CONCURRENCY must be >= 1, got %d", c.Rewrite.MaxConcurrency))
	}
	if c.Rewrite.QueueCapacity < 0 {
		errs = append(errs, fmt.Sprintf("REWRITE_QUEUE_CAPACITY must be >= 0, got %d", c.Rewrite.QueueCapacity))
	}
	if c.Rewrite.MaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("REWRITE_MAX_RETRIES must be >= 1, got %d", c.Rewrite.MaxRetries))
	}
	if c.Rewrite.Timeout <= 0 {
		errs = append(errs, "REWRITE_TIMEOUT_MS must be positive")
	}

	if c.Quota.BaseLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_BASE_LIMIT must be >= 1, got %d", c.Quota.BaseLimit))
	}
	if c.Quota.ReferralBonus < 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_REFERRAL_BONUS must be >= 0, got %d", c.Quota.ReferralBonus))
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("SCHEDULER_TIMEZONE %q is not a known location", c.Scheduler.Timezone))
	}

	// The outbound call plus backoff must fit into a single HTTP response.
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Rewrite.Timeout {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must not be shorter than REWRITE_TIMEOUT_MS")
	}

	if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < 32 {
		errs = append(errs, "ADMIN_JWT_SECRET must be at least 32 characters")
	}

	// Soft issues: warn only
	if c.Admin.MetricsKey == "" {
		slog.Warn("ADMIN_METRICS_KEY is empty, admin endpoints will reject every request")
	}
	if c.Bot.Username == "" {
		slog.Warn("BOT_USERNAME is empty, referral links will be incomplete")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
