// Package linkedseq provides many independent doubly-linked lists of uint64
// values, addressed by bucket key, over one shared pointer-free node arena,
// with a write-ahead log and checkpoints to a blob store.
//
// # Quick Start
//
//	ctx := context.Background()
//	db, err := linkedseq.Open(ctx,
//	    linkedseq.WithWAL("./data/wal"),
//	    linkedseq.WithBlobStore(blobstore.NewLocalStore("./data/blobs")),
//	    linkedseq.WithCheckpointEvery(10_000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	_ = db.Push(ctx, 7, 1)
//	_ = db.Push(ctx, 7, 3)
//	_ = db.InsertAt(ctx, 7, 1, 2) // bucket 7: [1 2 3]
//	v, _ := db.Pop(ctx, 7)        // 3
//
// # Data Model
//
// A bucket is a list; unseen buckets behave as empty lists. Positions are
// zero-based. InsertAt(b, i, v) leaves v at position i, so i == Len(b)
// appends. Every positional operation validates its index first and fails
// with *IndexOutOfBoundsError (matching ErrIndexOutOfBounds) without changing
// anything. Pop and Peek on an empty bucket report index 0.
//
// Nodes live in an arena and link to each other by slot number. Removed
// nodes go onto a LIFO free-list and are reused before new slots are minted,
// so the arena never grows past the peak number of live values.
//
// # Durability
//
// With WithWAL every mutation is validated, appended to the log, and only
// then applied. DurabilitySync (the default) fsyncs before returning,
// sharing one fsync among concurrent writers; DurabilityAsync leaves flushing
// to the OS.
//
// Checkpoint serializes the whole state into a snapshot image (package
// snapshot), uploads it, and commits a manifest (package manifest) by
// rewriting the CURRENT pointer. Open loads the snapshot CURRENT names,
// verifies its digest and structure, and replays WAL records past the
// snapshot's LSN. Blob stores for local disk, memory, S3 (with an optional
// DynamoDB-backed CURRENT), MinIO and SQLite live under blobstore/.
//
// # Observability
//
// Structured logging goes through *Logger (log/slog), metrics through
// MetricsCollector; metric/prometheus adapts the latter to Prometheus.
// Verify walks every chain and the free-list and reports the first broken
// invariant.
package linkedseq
