// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is an S3-compatible object store. This package uses the MinIO Go
// client, so it also works against Ceph, SeaweedFS, Garage and similar
// systems without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.Dial(ctx, minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "linkedseq",
//	    Prefix:    "db1/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := linkedseq.Open(ctx, linkedseq.WithBlobStore(store))
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
