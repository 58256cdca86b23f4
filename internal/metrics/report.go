package metrics

import (
	"context"
	"fmt"
	"math"
	"time"
)

// UserStats aggregates user counts.
type UserStats struct {
	Total       int64 `json:"total"`
	ActiveToday int64 `json:"active_today"`
	Active7d    int64 `json:"active_7d"`
	Active30d   int64 `json:"active_30d"`
	Premium     int64 `json:"premium"`
}

// DayTotal is one day of succeeded payments.
type DayTotal struct {
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type PaymentStats struct {
	TotalPayments  int64               `json:"total_payments"`
	NewPayments24h int64               `json:"new_payments_24h"`
	History30d     map[string]DayTotal `json:"history_30d"`
}

// UserStatsSource is satisfied by users.Repository.
type UserStatsSource interface {
	Stats(ctx context.Context, now time.Time) (*UserStats, error)
}

// PaymentStatsSource is satisfied by payments.Repository.
type PaymentStatsSource interface {
	Stats(ctx context.Context, now time.Time) (*PaymentStats, error)
}

// QueueGauges exposes the live rewrite queue counters.
type QueueGauges interface {
	QueueLength() int
	ConcurrentTasks() int
}

type UsageReport struct {
	TotalRewrites   int64            `json:"total_rewrites"`
	RewritesToday   int64            `json:"rewrites_today"`
	AvgInputLength  int64            `json:"avg_input_length"`
	AvgOutputLength int64            `json:"avg_output_length"`
	Tones           map[string]int64 `json:"tones"`
}

type ErrorReport struct {
	TotalErrors int64 `json:"total_errors"`
	ErrorsToday int64 `json:"errors_today"`
}

type SystemReport struct {
	QueueLength     *int  `json:"queue_length"`
	ConcurrentTasks *int  `json:"concurrent_tasks"`
	LatencyAvgMs    int64 `json:"latency_avg_ms"`
	LatencyP50Ms    int64 `json:"latency_p50_ms"`
	LatencyP95Ms    int64 `json:"latency_p95_ms"`
	LatencyPeakMs   int64 `json:"latency_peak_ms"`
	LatencySamples  int   `json:"latency_samples"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
}

// Report is the admin metrics document.
type Report struct {
	Users    *UserStats    `json:"users"`
	Usage    UsageReport   `json:"usage"`
	Payments *PaymentStats `json:"payments"`
	Errors   ErrorReport   `json:"errors"`
	System   SystemReport  `json:"system"`
}

// Reporter assembles a Report from the snapshot store, the database and the
// live queue.
type Reporter struct {
	recorder  *Recorder
	users     UserStatsSource
	payments  PaymentStatsSource
	queue     QueueGauges
	startedAt time.Time
	now       func() time.Time
}

// NewReporter creates a Reporter. queue may be nil.
func NewReporter(recorder *Recorder, users UserStatsSource, payments PaymentStatsSource, queue QueueGauges) *Reporter {
	return &Reporter{
		recorder:  recorder,
		users:     users,
		payments:  payments,
		queue:     queue,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

func (r *Reporter) GetMetrics(ctx context.Context) (*Report, error) {
	snap, err := r.recorder.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	now := r.now()
	userStats, err := r.users.Stats(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("loading user stats: %w", err)
	}
	paymentStats, err := r.payments.Stats(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("loading payment stats: %w", err)
	}

	today := now.UTC().Format(dayLayout)
	report := &Report{
		Users: userStats,
		Usage: UsageReport{
			TotalRewrites:   snap.TotalRewrites,
			RewritesToday:   snap.RewritesByDay[today],
			AvgInputLength:  perRewrite(snap.TotalInputChars, snap.TotalRewrites),
			AvgOutputLength: perRewrite(snap.TotalOutputChars, snap.TotalRewrites),
			Tones:           snap.Tones,
		},
		Payments: paymentStats,
		Errors: ErrorReport{
			TotalErrors: snap.ErrorsTotal,
			ErrorsToday: snap.ErrorsByDay[today],
		},
		System: SystemReport{
			LatencyAvgMs:   Average(snap.LatencySamples),
			LatencyP50Ms:   Percentile(snap.LatencySamples, 0.5),
			LatencyP95Ms:   Percentile(snap.LatencySamples, 0.95),
			LatencyPeakMs:  Peak(snap.LatencySamples),
			LatencySamples: len(snap.LatencySamples),
			UptimeSeconds:  int64(now.Sub(r.startedAt) / time.Second),
		},
	}

	if r.queue != nil {
		length, running := r.queue.QueueLength(), r.queue.ConcurrentTasks()
		report.System.QueueLength = &length
		report.System.ConcurrentTasks = &running
	}

	return report, nil
}

func perRewrite(total, rewrites int64) int64 {
	if total == 0 || rewrites == 0 {
		return 0
	}
	return int64(math.Round(float64(total) / float64(rewrites)))
}
