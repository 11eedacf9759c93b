package resource

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for snapshot buffers.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxBackgroundWorkers is the maximum number of concurrent checkpoints.
	// If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum upload throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages memory, concurrency and IO budgets.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	bgSem    *semaphore.Weighted
	bgActive atomic.Int64

	ioLimiter *rate.Limiter
	ioBytes   atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the limits c was created with, after defaults.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireBackground reserves a checkpoint slot, blocking until one frees up
// or ctx is done.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.bgSem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.bgActive.Add(1)
	return nil
}

// TryAcquireBackground attempts to reserve a checkpoint slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	if !c.bgSem.TryAcquire(1) {
		return false
	}
	c.bgActive.Add(1)
	return true
}

// ReleaseBackground releases a checkpoint slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgActive.Add(-1)
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows n bytes. Requests larger than
// one second of budget are split.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil {
		return nil
	}
	c.ioBytes.Add(int64(n))
	if c.ioLimiter == nil {
		return nil
	}

	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(n int) bool {
	if c == nil {
		return true
	}
	if c.ioLimiter != nil && !c.ioLimiter.AllowN(time.Now(), n) {
		return false
	}
	c.ioBytes.Add(int64(n))
	return true
}

// Stats is a point-in-time view of a Controller.
type Stats struct {
	MemoryUsed         int64
	MemoryLimit        int64
	BackgroundActive   int64
	BackgroundLimit    int64
	IOBytes            int64
	IOLimitBytesPerSec int64
}

// Stats returns current usage.
func (c *Controller) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		MemoryUsed:         c.memUsed.Load(),
		MemoryLimit:        c.cfg.MemoryLimitBytes,
		BackgroundActive:   c.bgActive.Load(),
		BackgroundLimit:    c.cfg.MaxBackgroundWorkers,
		IOBytes:            c.ioBytes.Load(),
		IOLimitBytesPerSec: c.cfg.IOLimitBytesPerSec,
	}
}

// Writer returns w throttled by the IO budget. With a nil controller w is
// returned unchanged.
func (c *Controller) Writer(ctx context.Context, w io.Writer) io.Writer {
	if c == nil {
		return w
	}
	return &throttledWriter{ctx: ctx, w: w, c: c}
}

type throttledWriter struct {
	ctx context.Context
	w   io.Writer
	c   *Controller
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if err := t.c.AcquireIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.w.Write(p)
}
