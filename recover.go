package linkedseq

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/hupe1980/linkedseq/internal/arena"
	"github.com/hupe1980/linkedseq/internal/verify"
	"github.com/hupe1980/linkedseq/internal/wal"
	"github.com/hupe1980/linkedseq/list"
	"github.com/hupe1980/linkedseq/manifest"
	"github.com/hupe1980/linkedseq/snapshot"
)

// recover loads the live checkpoint, if any, and replays the WAL on top.
func (db *DB) recover(ctx context.Context) (err error) {
	var replayed int
	defer func() {
		db.logger.LogRecovery(ctx, db.checkpointLSN(), replayed, err)
	}()

	if err := db.loadCheckpoint(ctx); err != nil {
		return err
	}

	if db.opts.walDir == "" {
		return nil
	}

	if err := db.opts.fs.MkdirAll(db.opts.walDir, 0o755); err != nil {
		return fmt.Errorf("create wal dir: %w", err)
	}
	w, err := wal.Open(db.opts.fs, filepath.Join(db.opts.walDir, walFileName), db.opts.walOptions)
	if err != nil {
		return fmt.Errorf("open wal: %w", err)
	}
	if n := w.Repaired(); n > 0 {
		db.logger.WarnContext(ctx, "truncated torn wal tail", "bytes", n)
	}

	replayed, err = db.replay(w)
	if err != nil {
		_ = w.Close()
		return err
	}
	db.wal = w
	return nil
}

// loadCheckpoint restores the lists from the snapshot CURRENT points at, or
// starts empty when nothing has been committed.
func (db *DB) loadCheckpoint(ctx context.Context) error {
	if db.manifests == nil {
		db.lists = list.New[Key](db.listOptions()...)
		return nil
	}

	m, err := db.manifests.Load(ctx)
	if errors.Is(err, manifest.ErrNotFound) {
		db.lists = list.New[Key](db.listOptions()...)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	image, err := blobstore.ReadAll(ctx, db.opts.blobStore, m.Snapshot)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", m.Snapshot, err)
	}
	if got := snapshot.Digest(image); got != m.Digest {
		return fmt.Errorf("%w: %s has %s, manifest records %s", ErrDigestMismatch, m.Snapshot, got, m.Digest)
	}

	state, _, err := snapshot.Unmarshal(image, db.arenaOptions()...)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", m.Snapshot, err)
	}
	if state.LSN != m.LSN {
		return fmt.Errorf("%w: snapshot lsn %d, manifest lsn %d", snapshot.ErrCorrupt, state.LSN, m.LSN)
	}
	if _, err := verify.Check(state.Lists.Arena(), state.Lists.Registry()); err != nil {
		return fmt.Errorf("verify snapshot %s: %w", m.Snapshot, err)
	}

	db.lists = state.Lists
	db.lsn = m.LSN
	db.current = m
	return nil
}

// replay applies every WAL record past the checkpoint. Records must continue
// the LSN sequence without gaps.
func (db *DB) replay(w *wal.WAL) (int, error) {
	var replayed int
	err := w.Replay(func(rec *wal.Record) error {
		if rec.LSN <= db.lsn {
			return nil
		}
		if rec.LSN != db.lsn+1 {
			return fmt.Errorf("%w: expected lsn %d, found %d", ErrLogGap, db.lsn+1, rec.LSN)
		}
		if err := validate(db.lists, rec); err != nil {
			return fmt.Errorf("%w: lsn %d %s: %w", ErrCorruptLog, rec.LSN, rec.Type, err)
		}
		if _, err := apply(db.lists, rec); err != nil {
			return fmt.Errorf("%w: lsn %d %s: %w", ErrCorruptLog, rec.LSN, rec.Type, err)
		}
		db.lsn = rec.LSN
		db.sinceCheckpoint++
		replayed++
		return nil
	})
	return replayed, err
}

func (db *DB) checkpointLSN() uint64 {
	if db.current == nil {
		return 0
	}
	return db.current.LSN
}

func (db *DB) listOptions() []list.Option {
	var opts []list.Option
	if db.opts.maxSlots > 0 {
		opts = append(opts, list.WithMaxSlots(db.opts.maxSlots))
	}
	if db.opts.capacity > 0 {
		opts = append(opts, list.WithCapacity(db.opts.capacity))
	}
	return opts
}

func (db *DB) arenaOptions() []arena.Option {
	var opts []arena.Option
	if db.opts.maxSlots > 0 {
		opts = append(opts, arena.WithMaxSlots(db.opts.maxSlots))
	}
	if db.opts.capacity > 0 {
		opts = append(opts, arena.WithCapacity(db.opts.capacity))
	}
	return opts
}
