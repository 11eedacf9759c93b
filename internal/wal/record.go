package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/linkedseq/internal/hash"
)

// RecordType identifies the list operation a record replays.
type RecordType uint8

const (
	RecordTypePush     RecordType = 1
	RecordTypeInsertAt RecordType = 2
	RecordTypeRemoveAt RecordType = 3
	RecordTypePop      RecordType = 4
)

func (t RecordType) String() string {
	switch t {
	case RecordTypePush:
		return "push"
	case RecordTypeInsertAt:
		return "insert_at"
	case RecordTypeRemoveAt:
		return "remove_at"
	case RecordTypePop:
		return "pop"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

var (
	ErrInvalidCRC     = errors.New("invalid WAL record checksum")
	ErrInvalidType    = errors.New("invalid WAL record type")
	ErrShortRead      = errors.New("short read in WAL record")
	ErrRecordTooLarge = errors.New("WAL record too large")
)

const (
	recordHeaderSize  = 4 + 1 + 8 + 4 // CRC + Type + LSN + Len
	recordPayloadSize = 8 + 8 + 8     // Bucket + Index + Value
	// RecordSize is the encoded size of every record.
	RecordSize = recordHeaderSize + recordPayloadSize
)

// Record is a single logged list mutation. Index is unused for Push and Pop,
// Value is unused for RemoveAt and Pop.
type Record struct {
	LSN    uint64
	Type   RecordType
	Bucket uint64
	Index  uint64
	Value  uint64
}

// Size returns the encoded size of the record.
func (r *Record) Size() int { return RecordSize }

// Encode writes the record to w.
// Format:
// [CRC32C: 4] [Type: 1] [LSN: 8] [Length: 4] [Bucket: 8] [Index: 8] [Value: 8]
// The checksum covers everything after itself.
func (r *Record) Encode(w io.Writer) error {
	var buf [RecordSize]byte
	r.put(buf[:])
	_, err := w.Write(buf[:])
	return err
}

func (r *Record) put(buf []byte) {
	buf[4] = byte(r.Type)
	binary.LittleEndian.PutUint64(buf[5:], r.LSN)
	binary.LittleEndian.PutUint32(buf[13:], recordPayloadSize)
	binary.LittleEndian.PutUint64(buf[17:], r.Bucket)
	binary.LittleEndian.PutUint64(buf[25:], r.Index)
	binary.LittleEndian.PutUint64(buf[33:], r.Value)
	binary.LittleEndian.PutUint32(buf[0:], hash.CRC32C(buf[4:]))
}

// Decode reads a record from r. It returns the record and the number of
// bytes consumed. A clean end of log yields io.EOF; a partial record yields
// ErrShortRead.
func Decode(r io.Reader) (*Record, int64, error) {
	var header [recordHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		return nil, int64(n), ErrShortRead
	}

	checksum := binary.LittleEndian.Uint32(header[0:])
	recType := RecordType(header[4])
	lsn := binary.LittleEndian.Uint64(header[5:])
	length := binary.LittleEndian.Uint32(header[13:])

	if length != recordPayloadSize {
		return nil, recordHeaderSize, fmt.Errorf("%w: payload length %d", ErrRecordTooLarge, length)
	}

	var payload [recordPayloadSize]byte
	m, err := io.ReadFull(r, payload[:])
	if err != nil {
		return nil, recordHeaderSize + int64(m), ErrShortRead
	}

	crc := hash.NewCRC32C()
	crc.Write(header[4:])
	crc.Write(payload[:])
	if crc.Sum32() != checksum {
		return nil, RecordSize, ErrInvalidCRC
	}

	switch recType {
	case RecordTypePush, RecordTypeInsertAt, RecordTypeRemoveAt, RecordTypePop:
	default:
		return nil, RecordSize, ErrInvalidType
	}

	return &Record{
		LSN:    lsn,
		Type:   recType,
		Bucket: binary.LittleEndian.Uint64(payload[0:]),
		Index:  binary.LittleEndian.Uint64(payload[8:]),
		Value:  binary.LittleEndian.Uint64(payload[16:]),
	}, RecordSize, nil
}
