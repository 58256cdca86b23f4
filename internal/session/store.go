package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps per-submitter conversational state between requests: the
// last message sent and whether a custom tone is being typed.
type Store interface {
	SetMessage(ctx context.Context, telegramID, text string) error
	// Message returns the cached text and whether one exists.
	Message(ctx context.Context, telegramID string) (string, bool, error)
	DeleteMessage(ctx context.Context, telegramID string) error
	SetAwaitingCustomTone(ctx context.Context, telegramID string, awaiting bool) error
	AwaitingCustomTone(ctx context.Context, telegramID string) (bool, error)
	Clear(ctx context.Context, telegramID string) error
}

func messageKey(telegramID string) string { return "session:msg:" + telegramID }
func toneKey(telegramID string) string    { return "session:tone:" + telegramID }

// RedisStore keeps session state in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) SetMessage(ctx context.Context, telegramID, text string) error {
	if err := s.client.Set(ctx, messageKey(telegramID), text, s.ttl).Err(); err != nil {
		return fmt.Errorf("caching message: %w", err)
	}
	return nil
}

func (s *RedisStore) Message(ctx context.Context, telegramID string) (string, bool, error) {
	text, err := s.client.Get(ctx, messageKey(telegramID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cached message: %w", err)
	}
	return text, true, nil
}

func (s *RedisStore) DeleteMessage(ctx context.Context, telegramID string) error {
	return s.client.Del(ctx, messageKey(telegramID)).Err()
}

func (s *RedisStore) SetAwaitingCustomTone(ctx context.Context, telegramID string, awaiting bool) error {
	if !awaiting {
		return s.client.Del(ctx, toneKey(telegramID)).Err()
	}
	if err := s.client.Set(ctx, toneKey(telegramID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("setting custom tone flag: %w", err)
	}
	return nil
}

func (s *RedisStore) AwaitingCustomTone(ctx context.Context, telegramID string) (bool, error) {
	n, err := s.client.Exists(ctx, toneKey(telegramID)).Result()
	if err != nil {
		return false, fmt.Errorf("reading custom tone flag: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context, telegramID string) error {
	return s.client.Del(ctx, messageKey(telegramID), toneKey(telegramID)).Err()
}

// MemoryStore is a process-local Store for tests and single-node runs.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string]string
	awaiting map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: map[string]string{}, awaiting: map[string]bool{}}
}

func (s *MemoryStore) SetMessage(_ context.Context, telegramID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[telegramID] = text
	return nil
}

func (s *MemoryStore) Message(_ context.Context, telegramID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.messages[telegramID]
	return text, ok, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, telegramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, telegramID)
	return nil
}

func (s *MemoryStore) SetAwaitingCustomTone(_ context.Context, telegramID string, awaiting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if awaiting {
		s.awaiting[telegramID] = true
	} else {
		delete(s.awaiting, telegramID)
	}
	return nil
}

func (s *MemoryStore) AwaitingCustomTone(_ context.Context, telegramID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting[telegramID], nil
}

func (s *MemoryStore) Clear(_ context.Context, telegramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, telegramID)
	delete(s.awaiting, telegramID)
	return nil
}
