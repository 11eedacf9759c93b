// Package manifest records which snapshot a checkpoint produced and the
// WAL position it covers.
//
// # Layout
//
// A blob store used by linkedseq holds three kinds of blobs:
//
//	snapshots/<lsn>-<uuid>.lseq   snapshot images (package snapshot)
//	manifests/<lsn>-<uuid>.cbor   one manifest per checkpoint
//	CURRENT                       name of the live manifest
//
// LSNs are zero-padded to 20 digits so lexical order equals numeric order.
//
// # Atomic Protocol
//
// Save writes the manifest blob first and then replaces CURRENT. A crash
// between the two leaves CURRENT at the previous checkpoint, which is still
// complete. On S3 the CURRENT write can go through s3.DDBCommitStore to
// turn a lost race into ErrConcurrentModification instead of a silent
// overwrite. Both names carry the checkpoint ID, so writers racing at the
// same LSN never replace or delete each other's blobs.
//
// # Encoding
//
// Manifests are CBOR maps with integer keys, encoded deterministically.
package manifest
