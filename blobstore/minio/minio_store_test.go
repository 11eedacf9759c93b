package minio

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/linkedseq/blobstore"
	"github.com/hupe1980/linkedseq/blobstore/blobstoretest"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Key(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{})
	require.NoError(t, err)

	tests := []struct {
		prefix string
		name   string
		want   string
	}{
		{prefix: "", name: "CURRENT", want: "CURRENT"},
		{prefix: "db1", name: "CURRENT", want: "db1/CURRENT"},
		{prefix: "db1/", name: "snapshots/1.lseq", want: "db1/snapshots/1.lseq"},
		{prefix: "/a/b/", name: "", want: "a/b/"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"|"+tt.name, func(t *testing.T) {
			s := NewStore(client, "bucket", tt.prefix)
			assert.Equal(t, tt.want, s.key(tt.name))
		})
	}
}

func TestMapError(t *testing.T) {
	assert.Equal(t, blobstore.ErrNotFound, mapError(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.Equal(t, blobstore.ErrNotFound, mapError(minio.ErrorResponse{Code: "NotFound"}))

	other := minio.ErrorResponse{Code: "AccessDenied"}
	assert.Equal(t, error(other), mapError(other))
}

// TestMinioStore_Integration runs the conformance suite against a live MinIO
// instance. Set LINKEDSEQ_MINIO_ENDPOINT (e.g. localhost:9000) to enable it.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("LINKEDSEQ_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("LINKEDSEQ_MINIO_ENDPOINT not set")
	}

	ctx := context.Background()
	run := time.Now().UnixNano()

	blobstoretest.Run(t, func(t *testing.T) blobstore.BlobStore {
		store, err := Dial(ctx, Config{
			Endpoint:     endpoint,
			AccessKey:    envOr("LINKEDSEQ_MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:    envOr("LINKEDSEQ_MINIO_SECRET_KEY", "minioadmin"),
			Bucket:       "linkedseq-test",
			Prefix:       fmt.Sprintf("%d/%s", run, t.Name()),
			CreateBucket: true,
		})
		require.NoError(t, err)
		return store
	})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
