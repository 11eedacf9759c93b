package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_Local(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, closeFn, err := openStore(ctx, "", filepath.Join(dir, "fallback"))
	require.NoError(t, err)
	require.NoError(t, closeFn())
	local, ok := s.(*blobstore.LocalStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "fallback"), local.Root())

	s, closeFn, err = openStore(ctx, "file://"+filepath.Join(dir, "explicit"), "unused")
	require.NoError(t, err)
	require.NoError(t, closeFn())
	assert.Equal(t, filepath.Join(dir, "explicit"), s.(*blobstore.LocalStore).Root())
}

func TestOpenStore_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs.db")

	s, closeFn, err := openStore(ctx, "sqlite://"+path, "")
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, s.Put(ctx, "a", []byte("x")))
	assert.FileExists(t, path)
}

func TestOpenStore_Errors(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{
		"ftp://host/path",
		"file://",
		"sqlite://",
		"s3:///prefix",
		"minio://host",
		"minio:///bucket",
		"://bad",
	} {
		t.Run(raw, func(t *testing.T) {
			_, _, err := openStore(ctx, raw, "")
			require.Error(t, err)
		})
	}
}

func TestSplitBucket(t *testing.T) {
	tests := []struct {
		path, bucket, prefix string
	}{
		{"/bucket", "bucket", ""},
		{"/bucket/", "bucket", ""},
		{"/bucket/a/b/", "bucket", "a/b"},
		{"", "", ""},
	}
	for _, tt := range tests {
		bucket, prefix := splitBucket(tt.path)
		assert.Equal(t, tt.bucket, bucket, tt.path)
		assert.Equal(t, tt.prefix, prefix, tt.path)
	}
}
