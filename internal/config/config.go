package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	OpenAI    OpenAIConfig
	Rewrite   RewriteConfig
	Quota     QuotaConfig
	Scheduler SchedulerConfig
	Session   SessionConfig
	Admin     AdminConfig
	Latency   LatencyConfig
	RateLimit RateLimitConfig
	Bot       BotConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL string
}

type OpenAIConfig struct {
	Key     string
	Model   string
	BaseURL string
	MaxRPS  float64
	Burst   int
}

// RewriteConfig tunes the admission queue and the outbound call policy.
type RewriteConfig struct {
	MaxConcurrency int
	QueueCapacity  int
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

type QuotaConfig struct {
	BaseLimit     int
	ReferralBonus int
}

type SchedulerConfig struct {
	Timezone      string
	ResetInterval time.Duration
}

type SessionConfig struct {
	TTL time.Duration
}

// AdminConfig guards the operator endpoints. An empty JWTSecret disables
// token issuance; the metrics key alone still works.
type AdminConfig struct {
	MetricsKey  string
	JWTSecret   string
	TokenExpiry time.Duration
}

type LatencyConfig struct {
	AlertThreshold time.Duration
}

type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

type BotConfig struct {
	Username string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		OpenAI: OpenAIConfig{
			Key:     k.String("openai.key"),
			Model:   k.String("openai.model"),
			BaseURL: k.String("openai.base.url"),
			MaxRPS:  k.Float64("openai.max.rps"),
			Burst:   k.Int("openai.burst"),
		},
		Rewrite: RewriteConfig{
			MaxConcurrency: k.Int("rewrite.max.concurrency"),
			QueueCapacity:  k.Int("rewrite.queue.capacity"),
			MaxRetries:     k.Int("rewrite.max.retries"),
			Timeout:        time.Duration(k.Int("rewrite.timeout.ms")) * time.Millisecond,
			RetryDelay:     time.Duration(k.Int("rewrite.retry.delay.ms")) * time.Millisecond,
		},
		Quota: QuotaConfig{
			BaseLimit:     k.Int("quota.base.limit"),
			ReferralBonus: k.Int("quota.referral.bonus"),
		},
		Scheduler: SchedulerConfig{
			Timezone: k.String("scheduler.timezone"),
		},
		Admin: AdminConfig{
			MetricsKey: k.String("admin.metrics.key"),
			JWTSecret:  k.String("admin.jwt.secret"),
		},
		Latency: LatencyConfig{
			AlertThreshold: time.Duration(k.Int("latency.alert.threshold.ms")) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
			WindowSec:   k.Int("ratelimit.window.sec"),
		},
		Bot: BotConfig{
			Username: k.String("bot.username"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "tonetuner"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "tonetuner"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Burst == 0 {
		cfg.OpenAI.Burst = 1
	}
	if cfg.Rewrite.MaxConcurrency == 0 {
		cfg.Rewrite.MaxConcurrency = 3
	}
	if !k.Exists("rewrite.queue.capacity") {
		cfg.Rewrite.QueueCapacity = 100
	}
	if cfg.Rewrite.Timeout == 0 {
		cfg.Rewrite.Timeout = 60 * time.Second
	}
	if cfg.Rewrite.MaxRetries == 0 {
		cfg.Rewrite.MaxRetries = 3
	}
	if cfg.Rewrite.RetryDelay == 0 {
		cfg.Rewrite.RetryDelay = time.Second
	}
	if cfg.Quota.BaseLimit == 0 {
		cfg.Quota.BaseLimit = 5
	}
	if cfg.Quota.ReferralBonus == 0 {
		cfg.Quota.ReferralBonus = 2
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Europe/Moscow"
	}
	if cfg.Latency.AlertThreshold == 0 {
		cfg.Latency.AlertThreshold = 10 * time.Second
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.Server.WriteTimeout, err = parseDuration(k, "server.write.timeout", "240s")
	if err != nil {
		return nil, err
	}
	cfg.Scheduler.ResetInterval, err = parseDuration(k, "scheduler.reset.interval", "0s")
	if err != nil {
		return nil, err
	}
	cfg.Session.TTL, err = parseDuration(k, "session.ttl", "24h")
	if err != nil {
		return nil, err
	}
	cfg.Admin.TokenExpiry, err = parseDuration(k, "admin.token.expiry", "1h")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(k *koanf.Koanf, key, def string) (time.Duration, error) {
	raw := k.String(key)
	if raw == "" {
		raw = def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}
