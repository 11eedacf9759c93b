// Package blobstoretest provides a conformance suite for blobstore.BlobStore
// implementations.
package blobstoretest

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the full BlobStore contract against stores produced by newStore.
// Every subtest gets a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and read", func(t *testing.T) {
		s := newStore(t)
		data := []byte("hello world, this is a test blob")

		require.NoError(t, s.Put(ctx, "manifests/1.cbor", data))

		got, err := blobstore.ReadAll(ctx, s, "manifests/1.cbor")
		require.NoError(t, err)
		assert.Equal(t, data, got)

		b, err := s.Open(ctx, "manifests/1.cbor")
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(len(data)), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(ctx, buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		r, err := b.ReadRange(ctx, 13, 4)
		require.NoError(t, err)
		part, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "this", string(part))
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifests/1.cbor")))
		require.NoError(t, s.Put(ctx, "CURRENT", []byte("manifests/2.cbor")))

		got, err := blobstore.ReadAll(ctx, s, "CURRENT")
		require.NoError(t, err)
		assert.Equal(t, "manifests/2.cbor", string(got))
	})

	t.Run("create", func(t *testing.T) {
		s := newStore(t)
		w, err := s.Create(ctx, "snapshots/7-a.lseq")
		require.NoError(t, err)
		_, err = w.Write([]byte("part1-"))
		require.NoError(t, err)
		_, err = w.Write([]byte("part2"))
		require.NoError(t, err)
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		got, err := blobstore.ReadAll(ctx, s, "snapshots/7-a.lseq")
		require.NoError(t, err)
		assert.Equal(t, "part1-part2", string(got))
	})

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Open(ctx, "missing")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
		assert.True(t, blobstore.IsNotFound(err))

		_, err = blobstore.ReadAll(ctx, s, "missing")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "snapshots/1-a.lseq", []byte("x")))
		require.NoError(t, s.Delete(ctx, "snapshots/1-a.lseq"))
		require.NoError(t, s.Delete(ctx, "snapshots/1-a.lseq"))

		_, err := s.Open(ctx, "snapshots/1-a.lseq")
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"snapshots/2-b.lseq", "manifests/1.cbor", "snapshots/1-a.lseq", "CURRENT"} {
			require.NoError(t, s.Put(ctx, name, []byte(name)))
		}

		names, err := s.List(ctx, "snapshots/")
		require.NoError(t, err)
		assert.Equal(t, []string{"snapshots/1-a.lseq", "snapshots/2-b.lseq"}, names)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"CURRENT", "manifests/1.cbor", "snapshots/1-a.lseq", "snapshots/2-b.lseq"}, all)

		none, err := s.List(ctx, "nothing/")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("empty blob", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "empty", nil))

		got, err := blobstore.ReadAll(ctx, s, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
