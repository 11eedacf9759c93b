package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/linkedseq/codec"
	"github.com/hupe1980/linkedseq/internal/arena"
	"github.com/hupe1980/linkedseq/internal/conv"
	"github.com/hupe1980/linkedseq/internal/hash"
	"github.com/hupe1980/linkedseq/internal/registry"
	"github.com/hupe1980/linkedseq/list"
)

const (
	// Magic identifies snapshot images.
	Magic = "LSEQSNAP"
	// Version is the current image format version.
	Version = 1

	headerSize = 48
	nodeSize   = 24
	bucketSize = 32
)

var (
	// ErrCorrupt is returned when an image fails validation.
	ErrCorrupt = errors.New("corrupt snapshot")
	// ErrInvalidMagic is returned when the input is not a snapshot image.
	ErrInvalidMagic = errors.New("invalid snapshot magic")
	// ErrInvalidVersion is returned for images written by an unknown format version.
	ErrInvalidVersion = errors.New("unsupported snapshot version")
)

// State is the content of a snapshot.
type State struct {
	// LSN is the last WAL record reflected in Lists.
	LSN   uint64
	Lists *list.Lists[uint64]
}

// Header describes an encoded image.
type Header struct {
	Version     uint32
	Compression codec.Compression
	LSN         uint64
	RawSize     uint64
	StoredSize  uint64
	Checksum    uint32
}

// Size is the total encoded size of the image.
func (h Header) Size() uint64 { return headerSize + h.StoredSize }

// Encode writes state to w using the given compression.
func Encode(w io.Writer, state State, c codec.Compression) (Header, error) {
	raw := encodePayload(state.Lists)

	stored, err := codec.Compress(c, raw)
	if err != nil {
		return Header{}, fmt.Errorf("compress snapshot: %w", err)
	}

	h := Header{
		Version:     Version,
		Compression: c,
		LSN:         state.LSN,
		RawSize:     uint64(len(raw)),
		StoredSize:  uint64(len(stored)),
		Checksum:    hash.CRC32C(raw),
	}
	if _, err := w.Write(h.marshal()); err != nil {
		return Header{}, err
	}
	if _, err := w.Write(stored); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Marshal encodes state into a byte slice.
func Marshal(state State, c codec.Compression) ([]byte, Header, error) {
	var buf bytes.Buffer
	h, err := Encode(&buf, state, c)
	if err != nil {
		return nil, Header{}, err
	}
	return buf.Bytes(), h, nil
}

// Decode reads an image from r and rebuilds its state.
// Options are forwarded to the restored Lists' arena.
func Decode(r io.Reader, opts ...arena.Option) (State, Header, error) {
	hb := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return State{}, Header{}, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	h, err := parseHeader(hb)
	if err != nil {
		return State{}, Header{}, err
	}

	storedLen, err := conv.Uint64ToInt(h.StoredSize)
	if err != nil {
		return State{}, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	rawLen, err := conv.Uint64ToInt(h.RawSize)
	if err != nil {
		return State{}, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return State{}, h, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}

	raw, err := codec.Decompress(h.Compression, stored, rawLen)
	if err != nil {
		return State{}, h, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	if got := hash.CRC32C(raw); got != h.Checksum {
		return State{}, h, fmt.Errorf("%w: checksum 0x%08x, want 0x%08x", ErrCorrupt, got, h.Checksum)
	}

	l, err := decodePayload(raw, opts...)
	if err != nil {
		return State{}, h, err
	}
	return State{LSN: h.LSN, Lists: l}, h, nil
}

// Unmarshal decodes an image held in memory.
func Unmarshal(data []byte, opts ...arena.Option) (State, Header, error) {
	st, h, err := Decode(bytes.NewReader(data), opts...)
	if err == nil && h.Size() != uint64(len(data)) {
		return State{}, h, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, uint64(len(data))-h.Size())
	}
	return st, h, err
}

// Digest returns the hex SHA3-256 digest of an encoded image.
func Digest(data []byte) string {
	return hash.Digest(data)
}

func (h Header) marshal() []byte {
	b := make([]byte, headerSize)
	copy(b[0:8], Magic)
	binary.LittleEndian.PutUint32(b[8:], h.Version)
	b[12] = byte(h.Compression)
	binary.LittleEndian.PutUint64(b[16:], h.LSN)
	binary.LittleEndian.PutUint64(b[24:], h.RawSize)
	binary.LittleEndian.PutUint64(b[32:], h.StoredSize)
	binary.LittleEndian.PutUint32(b[40:], h.Checksum)
	return b
}

// maxPayload bounds header sizes before any allocation happens.
const maxPayload = 1 << 40

func parseHeader(b []byte) (Header, error) {
	if string(b[0:8]) != Magic {
		return Header{}, fmt.Errorf("%w: %q", ErrInvalidMagic, b[0:8])
	}
	h := Header{
		Version:     binary.LittleEndian.Uint32(b[8:]),
		Compression: codec.Compression(b[12]),
		LSN:         binary.LittleEndian.Uint64(b[16:]),
		RawSize:     binary.LittleEndian.Uint64(b[24:]),
		StoredSize:  binary.LittleEndian.Uint64(b[32:]),
		Checksum:    binary.LittleEndian.Uint32(b[40:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if h.RawSize > maxPayload || h.StoredSize > maxPayload {
		return Header{}, fmt.Errorf("%w: payload size %d/%d", ErrCorrupt, h.RawSize, h.StoredSize)
	}
	return h, nil
}

func encodePayload(l *list.Lists[uint64]) []byte {
	a := l.Arena()
	reg := l.Registry()

	nodes := a.Nodes()[1:]
	free := a.FreeSlots()
	keys := registry.SortedKeys(reg)

	size := 8 + len(nodes)*nodeSize + 8 + len(free)*8 + 8 + len(keys)*bucketSize
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(nodes)))
	for _, n := range nodes {
		buf = binary.LittleEndian.AppendUint64(buf, n.Value)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(n.Prev))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(n.Next))
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(free)))
	for _, s := range free {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s))
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(keys)))
	for _, k := range keys {
		h := reg.Get(k)
		buf = binary.LittleEndian.AppendUint64(buf, k)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Head))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Tail))
		buf = binary.LittleEndian.AppendUint64(buf, h.Length)
	}
	return buf
}

type payloadReader struct {
	b   []byte
	off int
}

func (p *payloadReader) next() (uint64, error) {
	if len(p.b)-p.off < 8 {
		return 0, fmt.Errorf("%w: truncated payload at %d", ErrCorrupt, p.off)
	}
	v := binary.LittleEndian.Uint64(p.b[p.off:])
	p.off += 8
	return v, nil
}

// count reads an element count and checks that count elements of width
// bytes fit into the rest of the payload.
func (p *payloadReader) count(width int) (int, error) {
	n, err := p.next()
	if err != nil {
		return 0, err
	}
	if n > uint64(len(p.b)-p.off)/uint64(width) {
		return 0, fmt.Errorf("%w: count %d exceeds payload", ErrCorrupt, n)
	}
	return int(n), nil
}

func decodePayload(raw []byte, opts ...arena.Option) (*list.Lists[uint64], error) {
	p := &payloadReader{b: raw}

	minted, err := p.count(nodeSize)
	if err != nil {
		return nil, err
	}
	nodes := make([]arena.Node, minted+1)
	for i := 1; i <= minted; i++ {
		v, _ := p.next()
		prev, _ := p.next()
		next, _ := p.next()
		nodes[i] = arena.Node{Value: v, Prev: arena.Slot(prev), Next: arena.Slot(next)}
	}

	nfree, err := p.count(8)
	if err != nil {
		return nil, err
	}
	free := make([]arena.Slot, nfree)
	for i := range free {
		s, _ := p.next()
		free[i] = arena.Slot(s)
	}

	nbuckets, err := p.count(bucketSize)
	if err != nil {
		return nil, err
	}
	reg := registry.New[uint64]()
	inRange := func(s uint64) bool { return s != 0 && s <= uint64(minted) }

	var last uint64
	for i := 0; i < nbuckets; i++ {
		key, _ := p.next()
		head, _ := p.next()
		tail, _ := p.next()
		length, _ := p.next()

		if i > 0 && key <= last {
			return nil, fmt.Errorf("%w: bucket keys not strictly ascending at %d", ErrCorrupt, key)
		}
		last = key
		if length == 0 || length > uint64(minted) || !inRange(head) || !inRange(tail) {
			return nil, fmt.Errorf("%w: bucket %d header {%d %d %d}", ErrCorrupt, key, head, tail, length)
		}
		reg.Set(key, registry.Header{Head: arena.Slot(head), Tail: arena.Slot(tail), Length: length})
	}

	if p.off != len(raw) {
		return nil, fmt.Errorf("%w: %d unread payload bytes", ErrCorrupt, len(raw)-p.off)
	}

	a, err := arena.Restore(nodes, free, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return list.FromState(a, reg), nil
}
