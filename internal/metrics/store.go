package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKey       = "metrics:snapshot"
	maxUpdateAttempts = 10
)

// Store persists the counters document.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Update(ctx context.Context, mutate func(*Snapshot)) error
}

// RedisStore keeps the snapshot as one JSON value. Every update is a
// whole-document read-modify-write guarded by WATCH, so concurrent writers
// retry instead of overwriting each other.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a RedisStore on the default key.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: snapshotKey}
}

// Load returns the stored snapshot, or an empty one when none exists.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("reading metrics snapshot: %w", err)
	}
	return decodeSnapshot(raw), nil
}

// Update applies mutate to the current snapshot and writes it back.
func (s *RedisStore) Update(ctx context.Context, mutate func(*Snapshot)) error {
	txf := func(tx *redis.Tx) error {
		snap := NewSnapshot()
		raw, err := tx.Get(ctx, s.key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("reading metrics snapshot: %w", err)
		default:
			snap = decodeSnapshot(raw)
		}

		mutate(snap)

		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshaling metrics snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("updating metrics snapshot: %w", err)
	}
	return fmt.Errorf("updating metrics snapshot: too much contention after %d attempts", maxUpdateAttempts)
}

// decodeSnapshot tolerates a corrupt document by starting over.
func decodeSnapshot(raw []byte) *Snapshot {
	snap := &Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		slog.Warn("metrics snapshot is corrupt, starting fresh", "error", err)
		return NewSnapshot()
	}
	snap.normalize()
	return snap
}
