package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/hupe1980/linkedseq/codec"
)

const (
	// CurrentName is the blob holding the name of the live manifest.
	CurrentName = "CURRENT"
	// ManifestPrefix is the blob name prefix of every manifest.
	ManifestPrefix = "manifests/"
	// SnapshotPrefix is the blob name prefix of every snapshot image.
	SnapshotPrefix = "snapshots/"

	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1

	manifestExt = ".cbor"
	snapshotExt = ".lseq"
)

var (
	// ErrIncompatibleVersion is returned when the manifest version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")

	// ErrNotFound is returned when no manifest has been committed yet.
	ErrNotFound = errors.New("manifest not found")

	// ErrInvalid is returned for a manifest that decodes but cannot describe
	// a checkpoint.
	ErrInvalid = errors.New("invalid manifest")
)

// Manifest describes one checkpoint.
type Manifest struct {
	Version int       `cbor:"1,keyasint" json:"version"`
	ID      uuid.UUID `cbor:"2,keyasint" json:"id"`
	// LSN is the last WAL record folded into the snapshot.
	LSN uint64 `cbor:"3,keyasint" json:"lsn"`
	// Snapshot is the blob name of the snapshot image.
	Snapshot string `cbor:"4,keyasint" json:"snapshot"`
	// Digest is the SHA3-256 hex digest of the snapshot image.
	Digest      string    `cbor:"5,keyasint" json:"digest"`
	Compression string    `cbor:"6,keyasint" json:"compression"`
	Size        int64     `cbor:"7,keyasint" json:"size"`
	Buckets     int       `cbor:"8,keyasint" json:"buckets"`
	Live        uint64    `cbor:"9,keyasint" json:"live"`
	CreatedAt   time.Time `cbor:"10,keyasint" json:"created_at"`
}

// New creates a manifest for a snapshot covering lsn with a fresh ID.
func New(lsn uint64, c codec.Compression) *Manifest {
	id := uuid.New()
	return &Manifest{
		Version:     CurrentVersion,
		ID:          id,
		LSN:         lsn,
		Snapshot:    SnapshotName(lsn, id),
		Compression: c.String(),
		CreatedAt:   time.Now().UTC(),
	}
}

// Name returns the blob name of the manifest with the given LSN and ID.
// Two checkpoints at the same LSN never share a name.
func Name(lsn uint64, id uuid.UUID) string {
	return fmt.Sprintf("%s%020d-%s%s", ManifestPrefix, lsn, id, manifestExt)
}

// SnapshotName returns the blob name of a snapshot image.
func SnapshotName(lsn uint64, id uuid.UUID) string {
	return fmt.Sprintf("%s%020d-%s%s", SnapshotPrefix, lsn, id, snapshotExt)
}

// ParseName extracts the LSN and ID from a manifest blob name.
func ParseName(name string) (uint64, uuid.UUID, bool) {
	s, ok := strings.CutPrefix(name, ManifestPrefix)
	if !ok {
		return 0, uuid.Nil, false
	}
	s, ok = strings.CutSuffix(s, manifestExt)
	if !ok {
		return 0, uuid.Nil, false
	}
	lsnPart, idPart, ok := strings.Cut(s, "-")
	if !ok {
		return 0, uuid.Nil, false
	}
	lsn, err := strconv.ParseUint(lsnPart, 10, 64)
	if err != nil {
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return 0, uuid.Nil, false
	}
	return lsn, id, true
}

// Name returns the blob name of m.
func (m *Manifest) Name() string {
	return Name(m.LSN, m.ID)
}

// CompressionKind parses the recorded compression.
func (m *Manifest) CompressionKind() (codec.Compression, error) {
	return codec.ParseCompression(m.Compression)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal encodes m.
func Marshal(m *Manifest) ([]byte, error) {
	return encMode.Marshal(m)
}

// Unmarshal decodes and validates a manifest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	if !strings.HasPrefix(m.Snapshot, SnapshotPrefix) {
		return nil, fmt.Errorf("%w: snapshot %q", ErrInvalid, m.Snapshot)
	}
	if _, err := m.CompressionKind(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &m, nil
}
