package wal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/linkedseq/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayAll(t *testing.T, w *WAL) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, w.Replay(func(r *Record) error {
		out = append(out, *r)
		return nil
	}))
	return out
}

func sampleRecords() []Record {
	return []Record{
		{LSN: 1, Type: RecordTypePush, Bucket: 0, Value: 10},
		{LSN: 2, Type: RecordTypeInsertAt, Bucket: 0, Index: 0, Value: 5},
		{LSN: 3, Type: RecordTypeRemoveAt, Bucket: 7, Index: 3},
		{LSN: 4, Type: RecordTypePop, Bucket: 1},
	}
}

func TestWAL(t *testing.T) {
	for _, d := range []Durability{DurabilitySync, DurabilityAsync} {
		t.Run(d.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.wal")

			w, err := Open(nil, path, Options{Durability: d, Repair: true})
			require.NoError(t, err)

			recs := sampleRecords()
			for i := range recs {
				require.NoError(t, w.Append(&recs[i]))
			}
			require.NoError(t, w.Sync())
			assert.Equal(t, int64(walHeaderSize+len(recs)*RecordSize), w.Size())
			require.NoError(t, w.Close())

			w2, err := Open(nil, path, DefaultOptions())
			require.NoError(t, err)
			defer w2.Close()

			assert.Equal(t, recs, replayAll(t, w2))
			assert.Equal(t, uint64(4), w2.LastLSN())
			assert.Zero(t, w2.Repaired())
		})
	}
}

func TestWAL_Reader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reader.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()

	rec := Record{LSN: 1, Type: RecordTypePush, Value: 1}
	require.NoError(t, w.Append(&rec))

	r, err := w.Reader()
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.Equal(t, int64(walHeaderSize+RecordSize), r.Offset())
}

func TestWAL_GroupCommit_Concurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)

	const (
		concurrency = 20
		perWriter   = 50
	)

	var wg sync.WaitGroup
	errs := make(chan error, concurrency*perWriter)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				n := uint64(id*perWriter + j)
				errs <- w.Append(&Record{LSN: n, Type: RecordTypePush, Bucket: uint64(id), Value: n})
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	w2, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w2.Close()

	seen := make(map[uint64]bool)
	for _, r := range replayAll(t, w2) {
		seen[r.Value] = true
	}
	assert.Len(t, seen, concurrency*perWriter)
}

func TestWAL_TornTail(t *testing.T) {
	write := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "torn.wal")
		w, err := Open(nil, path, DefaultOptions())
		require.NoError(t, err)
		recs := sampleRecords()
		for i := range recs {
			require.NoError(t, w.Append(&recs[i]))
		}
		require.NoError(t, w.Close())

		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
		require.NoError(t, err)
		_, err = f.Write([]byte{1, 2, 3, 4, 5, 6, 7})
		require.NoError(t, err)
		require.NoError(t, f.Close())
		return path
	}

	t.Run("repair", func(t *testing.T) {
		path := write(t)

		w, err := Open(nil, path, DefaultOptions())
		require.NoError(t, err)

		assert.Equal(t, int64(7), w.Repaired())
		assert.Equal(t, uint64(4), w.LastLSN())
		assert.Len(t, replayAll(t, w), 4)

		require.NoError(t, w.Append(&Record{LSN: 5, Type: RecordTypePush, Value: 99}))
		require.NoError(t, w.Close())

		w2, err := Open(nil, path, DefaultOptions())
		require.NoError(t, err)
		defer w2.Close()

		recs := replayAll(t, w2)
		require.Len(t, recs, 5)
		assert.Equal(t, uint64(99), recs[4].Value)
	})

	t.Run("no repair", func(t *testing.T) {
		path := write(t)

		_, err := Open(nil, path, Options{Durability: DurabilitySync})
		require.ErrorIs(t, err, ErrTornTail)
	})
}

func TestWAL_CorruptRecordEndsLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crc.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	recs := sampleRecords()
	for i := range recs {
		require.NoError(t, w.Append(&recs[i]))
	}
	require.NoError(t, w.Close())

	// Flip a payload byte of the second record.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[walHeaderSize+RecordSize+recordHeaderSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0600))

	w2, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w2.Close()

	got := replayAll(t, w2)
	require.Len(t, got, 1)
	assert.Equal(t, recs[0], got[0])
	assert.Equal(t, int64(walHeaderSize+RecordSize), w2.Size())
}

func TestWAL_Truncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)

	recs := sampleRecords()
	for i := range recs {
		require.NoError(t, w.Append(&recs[i]))
	}

	require.NoError(t, w.Truncate())
	assert.Equal(t, int64(walHeaderSize), w.Size())
	assert.Empty(t, replayAll(t, w))
	assert.Equal(t, uint64(4), w.LastLSN())

	require.NoError(t, w.Append(&Record{LSN: 5, Type: RecordTypePop, Bucket: 2}))
	require.NoError(t, w.Close())

	w2, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, []Record{{LSN: 5, Type: RecordTypePop, Bucket: 2}}, replayAll(t, w2))
}

func TestWAL_InvalidHeader(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.wal")
	require.NoError(t, os.WriteFile(short, []byte("LSEQ"), 0600))
	_, err := Open(nil, short, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidHeader)

	magic := filepath.Join(dir, "magic.wal")
	require.NoError(t, os.WriteFile(magic, []byte("NOTAWAL\x00\x01\x00\x00\x00"), 0600))
	_, err = Open(nil, magic, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidHeader)

	version := filepath.Join(dir, "version.wal")
	require.NoError(t, os.WriteFile(version, []byte("LSEQWAL\x00\x09\x00\x00\x00"), 0600))
	_, err = Open(nil, version, DefaultOptions())
	require.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestWAL_Closed(t *testing.T) {
	w, err := Open(nil, filepath.Join(t.TempDir(), "closed.wal"), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.ErrorIs(t, w.Close(), os.ErrClosed)
	require.ErrorIs(t, w.Append(&Record{Type: RecordTypePush}), os.ErrClosed)
	require.ErrorIs(t, w.Truncate(), os.ErrClosed)
	require.ErrorIs(t, w.Sync(), os.ErrClosed)
}

func TestWAL_SyncFailureIsSticky(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faulty.wal")
	w, err := Open(nil, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("faulty.wal", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	w, err = Open(ffs, path, DefaultOptions())
	require.NoError(t, err)
	defer w.Close()

	err = w.Append(&Record{LSN: 1, Type: RecordTypePush})
	require.ErrorIs(t, err, fs.ErrInjected)

	err = w.Append(&Record{LSN: 2, Type: RecordTypePush})
	require.ErrorIs(t, err, fs.ErrInjected)
}
