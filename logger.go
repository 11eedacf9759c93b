package linkedseq

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with linkedseq-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithBucket adds a bucket field to the logger.
func (l *Logger) WithBucket(bucket Key) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", bucket),
	}
}

// LogMutation logs a list mutation.
func (l *Logger) LogMutation(ctx context.Context, op string, bucket Key, lsn uint64, err error) {
	if err != nil {
		l.DebugContext(ctx, op+" rejected",
			"bucket", bucket,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, op+" applied",
		"bucket", bucket,
		"lsn", lsn,
	)
}

// LogCheckpoint logs a checkpoint.
func (l *Logger) LogCheckpoint(ctx context.Context, lsn uint64, snapshot string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"lsn", lsn,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "checkpoint committed",
		"lsn", lsn,
		"snapshot", snapshot,
		"bytes", size,
	)
}

// LogRecovery logs the outcome of Open.
func (l *Logger) LogRecovery(ctx context.Context, snapshotLSN uint64, entriesReplayed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recovery failed",
			"snapshot_lsn", snapshotLSN,
			"entries_replayed", entriesReplayed,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "recovery completed",
		"snapshot_lsn", snapshotLSN,
		"entries_replayed", entriesReplayed,
	)
}

// LogPrune logs removal of superseded checkpoints.
func (l *Logger) LogPrune(ctx context.Context, manifests, snapshots int, err error) {
	if err != nil {
		l.WarnContext(ctx, "prune incomplete",
			"manifests", manifests,
			"snapshots", snapshots,
			"error", err,
		)
		return
	}
	if manifests+snapshots > 0 {
		l.DebugContext(ctx, "pruned checkpoints",
			"manifests", manifests,
			"snapshots", snapshots,
		)
	}
}
