// Package snapshot serializes the complete state of a list.Lists[uint64]
// (node arena, free-list and bucket registry) into a self-describing,
// checksummed and optionally compressed binary image.
//
// # Format
//
//	Header (48 bytes, little endian)
//	  Magic       [8]byte  "LSEQSNAP"
//	  Version     uint32
//	  Compression uint8    codec.Compression of the payload
//	  Reserved    [3]byte
//	  LSN         uint64   last WAL record covered by the image
//	  RawSize     uint64   uncompressed payload length
//	  StoredSize  uint64   payload length as stored
//	  Checksum    uint32   CRC32C of the uncompressed payload
//	  Reserved    [4]byte
//	Payload
//	  Minted      uint64
//	  Nodes       Minted x {Value, Prev, Next uint64}   slots 1..Minted
//	  FreeCount   uint64
//	  Free        FreeCount x uint64                    bottom to top
//	  BucketCount uint64
//	  Buckets     BucketCount x {Key, Head, Tail, Length uint64}, sorted by Key
//
// Decode rejects anything structurally impossible with ErrCorrupt. Link
// consistency is checked separately by the verifier.
package snapshot
