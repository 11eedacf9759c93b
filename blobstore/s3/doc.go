// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("linkedseq/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	db, err := linkedseq.Open(ctx, linkedseq.WithBlobStore(store))
//
// S3 has no compare-and-swap, so two processes checkpointing into the same
// prefix can overwrite each other's CURRENT pointer. DDBCommitStore closes
// that gap by committing CURRENT through DynamoDB conditional writes.
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large snapshot images
//   - CRC32C checksums on uploads
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
