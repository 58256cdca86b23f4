package metrics

import (
	"context"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Recorder writes rewrite and error counters to a Store.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// RecordRewrite counts a successful rewrite and appends its latency.
func (r *Recorder) RecordRewrite(ctx context.Context, s Sample) error {
	day := r.today()
	if err := r.store.Update(ctx, func(snap *Snapshot) { snap.AddRewrite(s, day) }); err != nil {
		return fmt.Errorf("recording rewrite: %w", err)
	}
	return nil
}

// RecordError counts a failed rewrite.
func (r *Recorder) RecordError(ctx context.Context) error {
	day := r.today()
	if err := r.store.Update(ctx, func(snap *Snapshot) { snap.AddError(day) }); err != nil {
		return fmt.Errorf("recording error: %w", err)
	}
	return nil
}

// Snapshot returns the stored counters.
func (r *Recorder) Snapshot(ctx context.Context) (*Snapshot, error) {
	return r.store.Load(ctx)
}

func (r *Recorder) today() string {
	return r.now().UTC().Format(dayLayout)
}
