package rewrite

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tonetuner/tonetuner/internal/metrics"
)

// Runner executes a single job. *Executor satisfies it.
type Runner interface {
	Rewrite(ctx context.Context, job Job) (*Result, error)
}

// Recorder persists rewrite and error samples. *metrics.Recorder satisfies it.
type Recorder interface {
	RecordRewrite(ctx context.Context, s metrics.Sample) error
	RecordError(ctx context.Context) error
}

const recordTimeout = 5 * time.Second

type outcome struct {
	result *Result
	err    error
}

type queuedJob struct {
	job  Job
	ctx  context.Context
	done chan outcome
}

// Queue admits rewrite jobs in FIFO order with at most concurrency of them
// running at once. Jobs are memory-resident; a restart loses them.
type Queue struct {
	runner      Runner
	recorder    Recorder
	concurrency int
	capacity    int

	mu      sync.Mutex
	pending []*queuedJob
	running int
}

// NewQueue creates a Queue. concurrency is clamped to at least 1; a
// capacity of 0 leaves the backlog unbounded.
func NewQueue(runner Runner, recorder Recorder, concurrency, capacity int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		runner:      runner,
		recorder:    recorder,
		concurrency: concurrency,
		capacity:    capacity,
	}
}

// Enqueue appends job and blocks until it settles. If ctx ends first the
// caller gets ctx.Err(), but the job keeps its place and still runs.
func (q *Queue) Enqueue(ctx context.Context, job Job) (*Result, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	qj := &queuedJob{
		job:  job,
		ctx:  context.WithoutCancel(ctx),
		done: make(chan outcome, 1),
	}

	q.mu.Lock()
	if q.capacity > 0 && len(q.pending) >= q.capacity {
		q.mu.Unlock()
		metrics.RewriteQueueRejectedTotal.Inc()
		slog.Warn("rewrite queue full, rejecting job", "job_id", job.ID, "capacity", q.capacity)
		return nil, ErrQueueFull
	}
	q.pending = append(q.pending, qj)
	q.updateGaugesLocked()
	q.mu.Unlock()

	slog.Debug("rewrite job enqueued", "job_id", job.ID, "telegram_id", job.TelegramID, "tone", job.Tone)
	q.process()

	select {
	case out := <-qj.done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueLength is the number of jobs waiting for a slot.
func (q *Queue) QueueLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ConcurrentTasks is the number of jobs currently executing.
func (q *Queue) ConcurrentTasks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Drain waits for every admitted and waiting job to settle or for ctx to end.
func (q *Queue) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		q.mu.Lock()
		idle := q.running == 0 && len(q.pending) == 0
		q.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// process admits waiting jobs while slots are free.
func (q *Queue) process() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.running < q.concurrency && len(q.pending) > 0 {
		qj := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running++
		go q.run(qj)
	}
	q.updateGaugesLocked()
}

func (q *Queue) run(qj *queuedJob) {
	result, err := q.runner.Rewrite(qj.ctx, qj.job)
	if err != nil {
		metrics.RewritesTotal.WithLabelValues("error").Inc()
		q.recordAsync(func(ctx context.Context) error { return q.recorder.RecordError(ctx) })
	} else {
		metrics.RewritesTotal.WithLabelValues("success").Inc()
		metrics.RewriteLatency.Observe(float64(result.LatencyMs) / 1000)
		sample := metrics.Sample{
			LatencyMs:   float64(result.LatencyMs),
			InputChars:  utf8.RuneCountInString(qj.job.Text),
			OutputChars: utf8.RuneCountInString(result.Text),
			Tone:        qj.job.Tone,
		}
		q.recordAsync(func(ctx context.Context) error { return q.recorder.RecordRewrite(ctx, sample) })
	}

	qj.done <- outcome{result: result, err: err}

	q.mu.Lock()
	q.running--
	q.updateGaugesLocked()
	more := len(q.pending) > 0
	q.mu.Unlock()

	if more {
		q.process()
	}
}

// recordAsync runs a metrics write off the critical path; failures are
// logged and dropped.
func (q *Queue) recordAsync(record func(ctx context.Context) error) {
	if q.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := record(ctx); err != nil {
			slog.Warn("recording rewrite metrics failed", "error", err)
		}
	}()
}

func (q *Queue) updateGaugesLocked() {
	metrics.RewriteQueueLength.Set(float64(len(q.pending)))
	metrics.RewriteConcurrentTasks.Set(float64(q.running))
}
