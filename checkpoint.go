package linkedseq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/linkedseq/manifest"
	"github.com/hupe1980/linkedseq/snapshot"
	"golang.org/x/sync/errgroup"
)

// pruneConcurrency bounds parallel deletes while pruning.
const pruneConcurrency = 8

// Checkpoint writes a snapshot of the current state to the blob store,
// commits a manifest for it, and truncates the WAL when no mutation arrived
// in the meantime. Checkpoints beyond the retention count are pruned
// afterwards. If nothing changed since the live checkpoint, that checkpoint's
// manifest is returned and nothing is written.
func (db *DB) Checkpoint(ctx context.Context) (*manifest.Manifest, error) {
	if db.manifests == nil {
		return nil, ErrNoBlobStore
	}

	db.ckptMu.Lock()
	defer db.ckptMu.Unlock()

	if err := db.opts.resources.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer db.opts.resources.ReleaseBackground()

	return db.checkpoint(ctx)
}

// autoCheckpoint runs a checkpoint unless one is already running or the
// resource controller has no free slot.
func (db *DB) autoCheckpoint(ctx context.Context) {
	if db.manifests == nil {
		return
	}
	if !db.ckptMu.TryLock() {
		return
	}
	defer db.ckptMu.Unlock()

	if !db.opts.resources.TryAcquireBackground() {
		db.logger.DebugContext(ctx, "auto-checkpoint skipped: no background slot")
		return
	}
	defer db.opts.resources.ReleaseBackground()

	if _, err := db.checkpoint(ctx); err != nil {
		db.mu.Lock()
		retry := db.lsn + db.opts.checkpointEvery
		db.autoRetryLSN = retry
		db.mu.Unlock()
		db.logger.WarnContext(ctx, "auto-checkpoint failed", "error", err, "retry_lsn", retry)
	}
}

// checkpointDue reports whether enough mutations accumulated for an
// automatic checkpoint. After a failed attempt the next one waits for
// another checkpointEvery mutations. Called with mu held.
func (db *DB) checkpointDue() bool {
	return db.opts.checkpointEvery > 0 && db.manifests != nil &&
		db.sinceCheckpoint >= db.opts.checkpointEvery && db.lsn >= db.autoRetryLSN
}

// checkpoint does the work of Checkpoint. Called with ckptMu held.
func (db *DB) checkpoint(ctx context.Context) (m *manifest.Manifest, err error) {
	start := time.Now()
	var (
		size      int64
		unchanged bool
	)
	defer func() {
		if unchanged {
			return
		}
		db.metrics.RecordCheckpoint(size, time.Since(start), err)
		if m != nil {
			db.logger.LogCheckpoint(ctx, m.LSN, m.Snapshot, size, err)
		} else if err != nil {
			db.logger.LogCheckpoint(ctx, 0, "", 0, err)
		}
	}()

	var image []byte
	image, m, unchanged, err = db.encodeSnapshot()
	if err != nil {
		return nil, err
	}
	if unchanged {
		return m, nil
	}
	size = int64(len(image))

	if err := db.opts.resources.AcquireMemory(size); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer db.opts.resources.ReleaseMemory(size)

	if err := db.upload(ctx, m.Snapshot, image); err != nil {
		return nil, err
	}
	if err := db.manifests.Save(ctx, m); err != nil {
		cleanup := context.WithoutCancel(ctx)
		_ = db.opts.blobStore.Delete(cleanup, m.Name())
		_ = db.opts.blobStore.Delete(cleanup, m.Snapshot)
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	if err := db.commitCheckpoint(m); err != nil {
		return m, err
	}

	db.prune(ctx)

	cp := *m
	return &cp, nil
}

// encodeSnapshot serializes the current state under the read lock.
func (db *DB) encodeSnapshot() ([]byte, *manifest.Manifest, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, nil, false, ErrClosed
	}
	if db.current != nil && db.current.LSN == db.lsn {
		cp := *db.current
		return nil, &cp, true, nil
	}

	image, _, err := snapshot.Marshal(snapshot.State{LSN: db.lsn, Lists: db.lists}, db.opts.compression)
	if err != nil {
		return nil, nil, false, fmt.Errorf("checkpoint: encode: %w", err)
	}

	st := db.lists.Stats()
	m := manifest.New(db.lsn, db.opts.compression)
	m.Digest = snapshot.Digest(image)
	m.Size = int64(len(image))
	m.Buckets = st.Buckets
	m.Live = st.Live
	return image, m, false, nil
}

// upload streams the image to the blob store through the IO throttle.
func (db *DB) upload(ctx context.Context, name string, image []byte) error {
	w, err := db.opts.blobStore.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("checkpoint: create %s: %w", name, err)
	}

	_, err = io.Copy(db.opts.resources.Writer(ctx, w), bytes.NewReader(image))
	if err == nil {
		err = w.Sync()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = db.opts.blobStore.Delete(context.WithoutCancel(ctx), name)
		return fmt.Errorf("checkpoint: upload %s: %w", name, err)
	}
	return nil
}

// commitCheckpoint makes m the live checkpoint and drops the WAL if it holds
// nothing beyond m.
func (db *DB) commitCheckpoint(m *manifest.Manifest) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.current = m
	db.sinceCheckpoint = db.lsn - m.LSN

	if db.wal == nil || db.closed || db.lsn != m.LSN {
		return nil
	}
	if err := db.wal.Truncate(); err != nil {
		return fmt.Errorf("checkpoint committed but wal truncate failed: %w", err)
	}
	return nil
}

// prune deletes manifests beyond the retention count and every snapshot no
// retained manifest references. Failures are logged; the next checkpoint
// retries.
func (db *DB) prune(ctx context.Context) {
	manifests, snapshots, err := db.pruneOnce(ctx)
	db.logger.LogPrune(ctx, manifests, snapshots, err)
}

func (db *DB) pruneOnce(ctx context.Context) (int, int, error) {
	all, err := db.manifests.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	live := db.Manifest()
	keep := make(map[string]bool, db.opts.retain+1)
	if live != nil {
		keep[live.Snapshot] = true
	}

	var drop []*manifest.Manifest
	for i, m := range all {
		if len(all)-i <= db.opts.retain || (live != nil && m.ID == live.ID) {
			keep[m.Snapshot] = true
			continue
		}
		drop = append(drop, m)
	}

	snapshots, err := db.opts.blobStore.List(ctx, manifest.SnapshotPrefix)
	if err != nil {
		return 0, 0, err
	}
	var orphans []string
	for _, name := range snapshots {
		if !keep[name] {
			orphans = append(orphans, name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneConcurrency)
	for _, m := range drop {
		g.Go(func() error {
			return db.manifests.Delete(gctx, m)
		})
	}
	for _, name := range orphans {
		g.Go(func() error {
			return db.opts.blobStore.Delete(gctx, name)
		})
	}
	if err := g.Wait(); err != nil {
		return len(drop), len(orphans), fmt.Errorf("prune: %w", err)
	}
	return len(drop), len(orphans), nil
}
