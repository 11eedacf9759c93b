package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies a block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores payloads as-is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses Zstandard (better ratio).
	CompressionZstd Compression = 2
)

// ErrUnknownCompression is returned for unrecognized compression identifiers.
var ErrUnknownCompression = errors.New("unknown compression")

// ErrSizeMismatch is returned when a block does not decompress to the
// expected size.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name produced by String back to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress compresses data with c. The result of CompressionLZ4 may be the
// input itself when LZ4 finds nothing to gain; Decompress handles that case
// from the raw size alone.
func Compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 || n >= len(data) {
			// Incompressible: stored verbatim.
			return data, nil
		}
		return dst[:n], nil
	case CompressionZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}

// Decompress reverses Compress. rawSize is the uncompressed length.
func Decompress(c Compression, data []byte, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(data) != rawSize {
			return nil, ErrSizeMismatch
		}
		return data, nil
	case CompressionLZ4:
		if len(data) == rawSize {
			return data, nil
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		if n != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, make([]byte, 0, rawSize))
		if err != nil {
			return nil, err
		}
		if len(out) != rawSize {
			return nil, ErrSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}
