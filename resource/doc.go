// Package resource bounds the background work a DB does while checkpointing.
//
// A Controller manages three budgets:
//
//   - Memory: snapshot images are built in memory before upload; their size
//     is reserved up front and the checkpoint fails fast with
//     ErrMemoryLimitExceeded when the budget is exhausted.
//   - Background slots: how many checkpoints may run at once across every DB
//     sharing the controller. Automatic checkpoints skip when no slot is free.
//   - IO: a token bucket throttling snapshot uploads, so a checkpoint does not
//     saturate the link a remote blob store sits behind.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     256 << 20,
//	    MaxBackgroundWorkers: 2,
//	    IOLimitBytesPerSec:   32 << 20,
//	})
//	db, err := linkedseq.Open(ctx, linkedseq.WithResourceController(rc))
//
// All methods are safe for concurrent use, and a nil *Controller imposes no
// limits.
package resource
