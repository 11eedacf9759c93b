package linkedseq

import (
	"log/slog"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/hupe1980/linkedseq/codec"
	"github.com/hupe1980/linkedseq/internal/fs"
	"github.com/hupe1980/linkedseq/internal/wal"
	"github.com/hupe1980/linkedseq/resource"
)

// Durability controls when a mutation is considered durable.
type Durability = wal.Durability

const (
	// DurabilityAsync leaves flushing to the OS page cache. A crash can lose
	// the most recent mutations but never corrupts the log.
	DurabilityAsync = wal.DurabilityAsync
	// DurabilitySync fsyncs before a mutation returns. The fsync runs under
	// the DB write lock, so every mutation pays for its own.
	DurabilitySync = wal.DurabilitySync
)

const (
	// DefaultRetain is the number of checkpoints kept by default.
	DefaultRetain = 2

	walFileName = "linkedseq.wal"
)

type options struct {
	walDir           string
	walOptions       wal.Options
	fs               fs.FileSystem
	blobStore        blobstore.BlobStore
	compression      codec.Compression
	checkpointEvery  uint64
	retain           int
	maxSlots         uint64
	capacity         int
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open.
type Option func(*options)

// WithWAL enables the write-ahead log in dir. Every mutation is appended to
// the log before it is applied, and Open replays the log on top of the last
// checkpoint.
//
// Example:
//
//	db, err := linkedseq.Open(ctx,
//	    linkedseq.WithWAL("./data/wal"),
//	    linkedseq.WithDurability(linkedseq.DurabilityAsync),
//	)
func WithWAL(dir string) Option {
	return func(o *options) {
		o.walDir = dir
	}
}

// WithDurability sets the WAL durability mode. Default: DurabilitySync.
func WithDurability(d Durability) Option {
	return func(o *options) {
		o.walOptions.Durability = d
	}
}

// WithWALRepair controls what Open does with a torn WAL tail. With repair
// enabled (the default) the partial record is truncated; without it Open
// fails.
func WithWALRepair(repair bool) Option {
	return func(o *options) {
		o.walOptions.Repair = repair
	}
}

// WithBlobStore sets where checkpoints are written and recovered from.
//
// Example:
//
//	store := blobstore.NewLocalStore("./data/blobs")
//	db, err := linkedseq.Open(ctx,
//	    linkedseq.WithWAL("./data/wal"),
//	    linkedseq.WithBlobStore(store),
//	)
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCompression sets the snapshot compression. Default: codec.CompressionLZ4.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCheckpointEvery checkpoints automatically after n mutations.
// 0 disables automatic checkpoints. A failed automatic checkpoint is logged
// and counted but does not fail the mutation that triggered it, which is
// already durable in the WAL.
func WithCheckpointEvery(n uint64) Option {
	return func(o *options) {
		o.checkpointEvery = n
	}
}

// WithRetain sets how many checkpoints are kept. Older manifests and every
// snapshot they alone reference are deleted after a checkpoint.
// Values below 1 are treated as 1.
func WithRetain(n int) Option {
	return func(o *options) {
		o.retain = max(n, 1)
	}
}

// WithMaxSlots caps the node arena. A mutation that would need more slots
// panics, and a snapshot that does not fit is rejected on Open.
func WithMaxSlots(n uint64) Option {
	return func(o *options) {
		o.maxSlots = n
	}
}

// WithCapacity pre-sizes the node arena for n nodes.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithResourceController bounds checkpoint memory, concurrency and upload
// bandwidth. One controller can be shared by several DBs.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &linkedseq.BasicMetricsCollector{}
//	db, _ := linkedseq.Open(ctx, linkedseq.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Mutations: %d, Avg latency: %dns\n", stats.MutationCount, stats.MutationAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := linkedseq.NewJSONLogger(slog.LevelInfo)
//	db, _ := linkedseq.Open(ctx, linkedseq.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// withFileSystem replaces the file system under the WAL.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		walOptions:       wal.DefaultOptions(),
		fs:               fs.Default,
		compression:      codec.CompressionLZ4,
		retain:           DefaultRetain,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
