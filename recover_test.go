package linkedseq

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/hupe1980/linkedseq/internal/wal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WALReplay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, WithWAL(dir))
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 1, 1))
	require.NoError(t, db.Push(ctx, 1, 3))
	require.NoError(t, db.InsertAt(ctx, 1, 1, 2))
	require.NoError(t, db.Push(ctx, 2, 7))
	_, err = db.Pop(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, WithWAL(dir))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, []uint64{1, 2, 3}, db.Slice(1))
	assert.Empty(t, db.Slice(2))
	st := db.Stats()
	assert.Equal(t, uint64(5), st.LSN)
	assert.Equal(t, uint64(5), st.SinceCheckpoint)
	assert.Equal(t, uint64(3), st.Live)
	assert.Equal(t, uint64(1), st.Free, "popped slot must be on the free-list after replay")
}

func TestRecover_TornTail(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := Open(ctx, WithWAL(dir))
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 0, 1))
	require.NoError(t, db.Push(ctx, 0, 2))
	require.NoError(t, db.Close())

	f, err := os.OpenFile(filepath.Join(dir, walFileName), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Run("without repair", func(t *testing.T) {
		_, err := Open(ctx, WithWAL(dir), WithWALRepair(false))
		require.ErrorIs(t, err, wal.ErrTornTail)
	})

	t.Run("with repair", func(t *testing.T) {
		db, err := Open(ctx, WithWAL(dir))
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, []uint64{1, 2}, db.Slice(0))
		require.NoError(t, db.Push(ctx, 0, 3))
		assert.Equal(t, uint64(3), db.Stats().LSN)
	})
}

func writeRecords(t *testing.T, dir string, recs ...*wal.Record) {
	t.Helper()
	w, err := wal.Open(nil, filepath.Join(dir, walFileName), wal.DefaultOptions())
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())
}

func TestRecover_LogGap(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir,
		&wal.Record{LSN: 1, Type: wal.RecordTypePush, Bucket: 0, Value: 1},
		&wal.Record{LSN: 3, Type: wal.RecordTypePush, Bucket: 0, Value: 2},
	)

	_, err := Open(context.Background(), WithWAL(dir))
	require.ErrorIs(t, err, ErrLogGap)
}

func TestRecover_CorruptLog(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir,
		&wal.Record{LSN: 1, Type: wal.RecordTypePush, Bucket: 0, Value: 1},
		&wal.Record{LSN: 2, Type: wal.RecordTypeRemoveAt, Bucket: 0, Index: 4},
	)

	_, err := Open(context.Background(), WithWAL(dir))
	require.ErrorIs(t, err, ErrCorruptLog)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestRecover_LogExceedsMaxSlots(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir,
		&wal.Record{LSN: 1, Type: wal.RecordTypePush, Bucket: 0, Value: 1},
		&wal.Record{LSN: 2, Type: wal.RecordTypePush, Bucket: 0, Value: 2},
		&wal.Record{LSN: 3, Type: wal.RecordTypeInsertAt, Bucket: 1, Index: 0, Value: 3},
	)

	var err error
	require.NotPanics(t, func() {
		_, err = Open(context.Background(), WithWAL(dir), WithMaxSlots(2))
	})
	require.ErrorIs(t, err, ErrCorruptLog)
	require.ErrorIs(t, err, ErrSlotsExhausted)
}

func TestRecover_CheckpointPlusWAL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithWAL(dir), WithBlobStore(store))
	require.NoError(t, err)
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, db.Push(ctx, i%2, i))
	}
	_, err = db.Checkpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 0, 100))
	_, err = db.RemoveAt(ctx, 1, 0)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, WithWAL(dir), WithBlobStore(store))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, []uint64{0, 2, 4, 100}, db.Slice(0))
	assert.Equal(t, []uint64{3}, db.Slice(1))
	st := db.Stats()
	assert.Equal(t, uint64(7), st.LSN)
	assert.Equal(t, uint64(5), st.CheckpointLSN)
	assert.Equal(t, uint64(2), st.SinceCheckpoint)
	require.NoError(t, db.Verify())
}

func TestRecover_SnapshotOnly(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithBlobStore(store))
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 3, 1))
	require.NoError(t, db.Push(ctx, 3, 2))
	_, err = db.Pop(ctx, 3)
	require.NoError(t, err)
	m, err := db.Checkpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, WithBlobStore(store))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, []uint64{1}, db.Slice(3))
	assert.Equal(t, m.ID, db.Manifest().ID)
	assert.Equal(t, uint64(1), db.Stats().Free)
}

func TestRecover_DigestMismatch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithBlobStore(store))
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 0, 1))
	m, err := db.Checkpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	image, err := blobstore.ReadAll(ctx, store, m.Snapshot)
	require.NoError(t, err)
	image[len(image)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, m.Snapshot, image))

	_, err = Open(ctx, WithBlobStore(store))
	require.ErrorIs(t, err, ErrDigestMismatch)
}

func TestRecover_MissingSnapshot(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithBlobStore(store))
	require.NoError(t, err)
	require.NoError(t, db.Push(ctx, 0, 1))
	m, err := db.Checkpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.NoError(t, store.Delete(ctx, m.Snapshot))

	_, err = Open(ctx, WithBlobStore(store))
	require.Error(t, err)
	assert.True(t, blobstore.IsNotFound(err))
}

func TestRecover_SnapshotExceedsMaxSlots(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, err := Open(ctx, WithBlobStore(store))
	require.NoError(t, err)
	for i := uint64(0); i < 4; i++ {
		require.NoError(t, db.Push(ctx, 0, i))
	}
	_, err = db.Checkpoint(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, WithBlobStore(store), WithMaxSlots(2))
	require.Error(t, err)
}
