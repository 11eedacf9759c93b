package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})

	require.NoError(t, c.AcquireBackground(t.Context()))
	require.NoError(t, c.AcquireBackground(t.Context()))
	assert.Equal(t, int64(2), c.Stats().BackgroundActive)

	assert.False(t, c.TryAcquireBackground())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireBackground(ctx), context.DeadlineExceeded)

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
	assert.Equal(t, int64(2), c.Stats().BackgroundActive)
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxBackgroundWorkers)
}

func TestController_IO(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		c := NewController(Config{})
		require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
		assert.True(t, c.TryAcquireIO(1<<30))
		assert.Equal(t, int64(2<<30), c.Stats().IOBytes)
	})

	t.Run("request larger than burst is split", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 1000})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// 1000 tokens available immediately, the remaining 500 after ~0.5s.
		start := time.Now()
		require.NoError(t, c.AcquireIO(ctx, 1500))
		assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	})

	t.Run("canceled", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 10})
		require.True(t, c.TryAcquireIO(10))
		assert.False(t, c.TryAcquireIO(10))
		assert.Equal(t, int64(10), c.Stats().IOBytes, "denied requests are not counted")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, c.AcquireIO(ctx, 10))
	})
}

func TestController_Writer(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	var buf bytes.Buffer

	w := c.Writer(context.Background(), &buf)
	n, err := w.Write([]byte("snapshot image"))
	require.NoError(t, err)
	assert.Equal(t, 14, n)
	assert.Equal(t, "snapshot image", buf.String())
	assert.Equal(t, int64(14), c.Stats().IOBytes)

	var nilController *Controller
	assert.Same(t, &buf, nilController.Writer(context.Background(), &buf))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())
	assert.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	assert.NoError(t, c.AcquireIO(context.Background(), 10))
	assert.True(t, c.TryAcquireIO(10))
	assert.Equal(t, Stats{}, c.Stats())
	assert.Equal(t, Config{}, c.Config())
}
