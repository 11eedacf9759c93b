package linkedseq

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metric/prometheus package provides a ready-made adapter.
type MetricsCollector interface {
	// RecordMutation is called after each Push, Pop, InsertAt and RemoveAt.
	// err is non-nil if the mutation was rejected or could not be logged.
	RecordMutation(op string, duration time.Duration, err error)

	// RecordRead is called after each Peek and At.
	RecordRead(op string, duration time.Duration, err error)

	// RecordCheckpoint is called after each checkpoint attempt with the
	// size of the uploaded snapshot image.
	RecordCheckpoint(bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMutation(string, time.Duration, error)  {}
func (NoopMetricsCollector) RecordRead(string, time.Duration, error)      {}
func (NoopMetricsCollector) RecordCheckpoint(int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MutationCount        atomic.Int64
	MutationErrors       atomic.Int64
	MutationTotalNanos   atomic.Int64
	ReadCount            atomic.Int64
	ReadErrors           atomic.Int64
	CheckpointCount      atomic.Int64
	CheckpointErrors     atomic.Int64
	CheckpointBytes      atomic.Int64
	CheckpointTotalNanos atomic.Int64
}

// RecordMutation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMutation(_ string, duration time.Duration, err error) {
	b.MutationCount.Add(1)
	b.MutationTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MutationErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(_ string, _ time.Duration, err error) {
	b.ReadCount.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(bytes int64, duration time.Duration, err error) {
	b.CheckpointCount.Add(1)
	b.CheckpointTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CheckpointErrors.Add(1)
		return
	}
	b.CheckpointBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MutationCount:      b.MutationCount.Load(),
		MutationErrors:     b.MutationErrors.Load(),
		MutationAvgNanos:   avg(b.MutationTotalNanos.Load(), b.MutationCount.Load()),
		ReadCount:          b.ReadCount.Load(),
		ReadErrors:         b.ReadErrors.Load(),
		CheckpointCount:    b.CheckpointCount.Load(),
		CheckpointErrors:   b.CheckpointErrors.Load(),
		CheckpointBytes:    b.CheckpointBytes.Load(),
		CheckpointAvgNanos: avg(b.CheckpointTotalNanos.Load(), b.CheckpointCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MutationCount      int64
	MutationErrors     int64
	MutationAvgNanos   int64
	ReadCount          int64
	ReadErrors         int64
	CheckpointCount    int64
	CheckpointErrors   int64
	CheckpointBytes    int64
	CheckpointAvgNanos int64
}
