// Package hash provides the checksums and digests used by the persistence
// formats.
//
// CRC32C (Castagnoli) frames WAL records and snapshot payloads; SHA3-256
// content digests identify snapshots in manifests.
package hash
