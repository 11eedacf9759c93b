// Package blobstore provides the storage abstraction for snapshot images,
// manifests and the CURRENT pointer.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests and ephemeral databases
//   - LocalStore: local file system, atomic renames and mmap reads
//   - s3.Store / s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible servers
//   - sqlite.Store: a single SQLite database file
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// The blobstoretest package contains a conformance suite for new backends.
package blobstore
