package linkedseq

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}

	m.RecordMutation(OpPush, 10*time.Nanosecond, nil)
	m.RecordMutation(OpPop, 30*time.Nanosecond, errors.New("boom"))
	m.RecordRead(OpPeek, time.Nanosecond, nil)
	m.RecordCheckpoint(100, 4*time.Nanosecond, nil)
	m.RecordCheckpoint(500, 2*time.Nanosecond, errors.New("boom"))

	assert.Equal(t, BasicMetricsStats{
		MutationCount:      2,
		MutationErrors:     1,
		MutationAvgNanos:   20,
		ReadCount:          1,
		CheckpointCount:    2,
		CheckpointErrors:   1,
		CheckpointBytes:    100,
		CheckpointAvgNanos: 3,
	}, m.GetStats())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	l.WithBucket(7).Info("hello")
	l.LogMutation(ctx, OpPush, 7, 3, nil)
	l.LogCheckpoint(ctx, 3, "snapshots/x.lseq", 128, nil)
	l.LogPrune(ctx, 0, 0, nil)

	out := buf.String()
	assert.Contains(t, out, `"bucket":7`)
	assert.Contains(t, out, `"msg":"push applied"`)
	assert.Contains(t, out, `"snapshot":"snapshots/x.lseq"`)
	assert.NotContains(t, out, "pruned", "empty prune is not logged")

	buf.Reset()
	NoopLogger().Error("dropped")
	assert.Empty(t, buf.String())
}
