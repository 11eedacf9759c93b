package linkedseq

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/hupe1980/linkedseq/internal/registry"
	"github.com/hupe1980/linkedseq/internal/verify"
	"github.com/hupe1980/linkedseq/internal/wal"
	"github.com/hupe1980/linkedseq/list"
	"github.com/hupe1980/linkedseq/manifest"
)

// Key addresses a bucket.
type Key = uint64

// Operation names passed to MetricsCollector and Logger.
const (
	OpPush     = "push"
	OpPop      = "pop"
	OpInsertAt = "insert_at"
	OpRemoveAt = "remove_at"
	OpPeek     = "peek"
	OpAt       = "at"
)

// DB is a durable set of bucketed linked lists.
//
// All methods are safe for concurrent use. Mutations are serialized; reads
// run in parallel with each other.
type DB struct {
	mu     sync.RWMutex
	lists  *list.Lists[Key]
	wal    *wal.WAL
	lsn    uint64 // last applied LSN
	closed bool

	// checkpoint state, guarded by mu
	current         *manifest.Manifest
	sinceCheckpoint uint64
	autoRetryLSN    uint64 // no automatic checkpoint before this LSN

	ckptMu    sync.Mutex // serializes checkpoints
	manifests *manifest.Store

	opts    options
	metrics MetricsCollector
	logger  *Logger
}

// Stats summarizes a DB.
type Stats struct {
	list.Stats
	// LSN is the last applied log sequence number.
	LSN uint64
	// CheckpointLSN is the LSN covered by the live checkpoint, 0 if none.
	CheckpointLSN uint64
	// SinceCheckpoint counts mutations not covered by the live checkpoint.
	SinceCheckpoint uint64
	// WALBytes is the size of the write-ahead log, 0 without a WAL.
	WALBytes int64
}

// Open recovers a DB from its last checkpoint and WAL, or creates an empty
// one. Without WithWAL and WithBlobStore the DB lives in memory only.
func Open(ctx context.Context, optFns ...Option) (*DB, error) {
	opts := applyOptions(optFns)

	db := &DB{
		opts:    opts,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}
	if opts.blobStore != nil {
		db.manifests = manifest.NewStore(opts.blobStore)
	}

	if err := db.recover(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Push appends v to the end of bucket.
func (db *DB) Push(ctx context.Context, bucket Key, v uint64) error {
	_, err := db.mutate(ctx, OpPush, &wal.Record{Type: wal.RecordTypePush, Bucket: bucket, Value: v})
	return err
}

// Pop removes and returns the last value of bucket.
func (db *DB) Pop(ctx context.Context, bucket Key) (uint64, error) {
	return db.mutate(ctx, OpPop, &wal.Record{Type: wal.RecordTypePop, Bucket: bucket})
}

// InsertAt inserts v so that it ends up at position index. index ==
// Len(bucket) appends.
func (db *DB) InsertAt(ctx context.Context, bucket Key, index, v uint64) error {
	_, err := db.mutate(ctx, OpInsertAt, &wal.Record{Type: wal.RecordTypeInsertAt, Bucket: bucket, Index: index, Value: v})
	return err
}

// RemoveAt removes and returns the value at index.
func (db *DB) RemoveAt(ctx context.Context, bucket Key, index uint64) (uint64, error) {
	return db.mutate(ctx, OpRemoveAt, &wal.Record{Type: wal.RecordTypeRemoveAt, Bucket: bucket, Index: index})
}

// mutate validates rec against the current state, logs it and applies it.
// A rejected mutation writes nothing.
func (db *DB) mutate(ctx context.Context, op string, rec *wal.Record) (uint64, error) {
	start := time.Now()

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		db.metrics.RecordMutation(op, time.Since(start), ErrClosed)
		return 0, ErrClosed
	}

	if err := validate(db.lists, rec); err != nil {
		db.mu.Unlock()
		db.metrics.RecordMutation(op, time.Since(start), err)
		db.logger.LogMutation(ctx, op, rec.Bucket, 0, err)
		if errors.Is(err, ErrSlotsExhausted) {
			panic(ErrSlotsExhausted)
		}
		return 0, err
	}

	rec.LSN = db.lsn + 1
	if db.wal != nil {
		if err := db.wal.Append(rec); err != nil {
			db.mu.Unlock()
			db.metrics.RecordMutation(op, time.Since(start), err)
			db.logger.ErrorContext(ctx, "wal append failed", "op", op, "bucket", rec.Bucket, "error", err)
			return 0, err
		}
	}

	v, err := apply(db.lists, rec)
	if err != nil {
		// validate accepted rec, so apply cannot fail
		panic(err)
	}
	db.lsn = rec.LSN
	db.sinceCheckpoint++
	due := db.checkpointDue()
	db.mu.Unlock()

	db.metrics.RecordMutation(op, time.Since(start), nil)
	db.logger.LogMutation(ctx, op, rec.Bucket, rec.LSN, nil)

	if due {
		db.autoCheckpoint(ctx)
	}
	return v, nil
}

// validate reports why rec cannot be applied to l: an out-of-range index,
// or ErrSlotsExhausted when rec needs a node slot the arena cannot provide.
func validate(l *list.Lists[Key], rec *wal.Record) error {
	n := l.Len(rec.Bucket)
	switch rec.Type {
	case wal.RecordTypePush:
		if !l.Arena().CanAllocate() {
			return ErrSlotsExhausted
		}
	case wal.RecordTypeInsertAt:
		if rec.Index > n {
			return outOfBounds(rec.Index)
		}
		if !l.Arena().CanAllocate() {
			return ErrSlotsExhausted
		}
	case wal.RecordTypeRemoveAt:
		if rec.Index >= n {
			return outOfBounds(rec.Index)
		}
	case wal.RecordTypePop:
		if n == 0 {
			return outOfBounds(0)
		}
	}
	return nil
}

// apply performs rec on l. Push and InsertAt return 0.
func apply(l *list.Lists[Key], rec *wal.Record) (uint64, error) {
	switch rec.Type {
	case wal.RecordTypePush:
		l.Push(rec.Bucket, rec.Value)
		return 0, nil
	case wal.RecordTypeInsertAt:
		return 0, l.InsertAt(rec.Bucket, rec.Index, rec.Value)
	case wal.RecordTypeRemoveAt:
		return l.RemoveAt(rec.Bucket, rec.Index)
	case wal.RecordTypePop:
		return l.Pop(rec.Bucket)
	default:
		return 0, wal.ErrInvalidType
	}
}

// Peek returns the last value of bucket.
func (db *DB) Peek(bucket Key) (uint64, error) {
	start := time.Now()
	db.mu.RLock()
	v, err := db.read(func() (uint64, error) { return db.lists.Peek(bucket) })
	db.mu.RUnlock()
	db.metrics.RecordRead(OpPeek, time.Since(start), err)
	return v, err
}

// At returns the value at index in bucket.
func (db *DB) At(bucket Key, index uint64) (uint64, error) {
	start := time.Now()
	db.mu.RLock()
	v, err := db.read(func() (uint64, error) { return db.lists.At(bucket, index) })
	db.mu.RUnlock()
	db.metrics.RecordRead(OpAt, time.Since(start), err)
	return v, err
}

func (db *DB) read(fn func() (uint64, error)) (uint64, error) {
	if db.closed {
		return 0, ErrClosed
	}
	return fn()
}

// Len returns the number of values in bucket. A closed DB reports 0.
func (db *DB) Len(bucket Key) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return 0
	}
	return db.lists.Len(bucket)
}

// Slice returns a copy of bucket from head to tail.
func (db *DB) Slice(bucket Key) []uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil
	}
	return db.lists.Slice(bucket)
}

// Values returns an iterator over bucket from head to tail. Each iteration
// sees the bucket as it was when the iteration started, and the DB may be
// mutated from inside the loop.
func (db *DB) Values(bucket Key) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for _, v := range db.Slice(bucket) {
			if !yield(v) {
				return
			}
		}
	}
}

// Buckets returns the keys of every non-empty bucket in ascending order.
func (db *DB) Buckets() []Key {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil
	}
	return registry.SortedKeys(db.lists.Registry())
}

// Stats returns counters of the DB.
func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	st := Stats{
		Stats:           db.lists.Stats(),
		LSN:             db.lsn,
		SinceCheckpoint: db.sinceCheckpoint,
	}
	if db.current != nil {
		st.CheckpointLSN = db.current.LSN
	}
	if db.wal != nil && !db.closed {
		st.WALBytes = db.wal.Size()
	}
	return st
}

// Verify checks the structural invariants of the live state: every bucket
// is a well-formed doubly-linked chain, no node is shared, and every slot is
// either linked or free.
func (db *DB) Verify() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	_, err := verify.Check(db.lists.Arena(), db.lists.Registry())
	return err
}

// Manifest returns the live checkpoint's manifest, or nil if none exists.
func (db *DB) Manifest() *manifest.Manifest {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.current == nil {
		return nil
	}
	m := *db.current
	return &m
}
