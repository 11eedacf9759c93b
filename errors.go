package linkedseq

import (
	"errors"

	"github.com/hupe1980/linkedseq/internal/arena"
	"github.com/hupe1980/linkedseq/list"
)

var (
	// ErrClosed is returned by every operation on a closed DB.
	ErrClosed = errors.New("linkedseq: db closed")

	// ErrNoBlobStore is returned by Checkpoint when the DB was opened without
	// a blob store.
	ErrNoBlobStore = errors.New("linkedseq: no blob store configured")

	// ErrDigestMismatch is returned when a snapshot image does not match the
	// digest recorded in its manifest.
	ErrDigestMismatch = errors.New("linkedseq: snapshot digest mismatch")

	// ErrLogGap is returned when WAL records do not continue the LSN sequence
	// of the loaded snapshot.
	ErrLogGap = errors.New("linkedseq: gap in write-ahead log")

	// ErrCorruptLog is returned when a WAL record cannot be applied.
	ErrCorruptLog = errors.New("linkedseq: corrupt write-ahead log")

	// ErrSlotsExhausted is the panic value of a mutation that needs a node
	// slot past WithMaxSlots. Nothing is logged or applied before the panic.
	ErrSlotsExhausted = arena.ErrExhausted

	// ErrIndexOutOfBounds matches every *IndexOutOfBoundsError under errors.Is.
	ErrIndexOutOfBounds = list.ErrIndexOutOfBounds
)

// IndexOutOfBoundsError reports a position outside the valid range of the
// targeted operation.
type IndexOutOfBoundsError = list.IndexOutOfBoundsError

func outOfBounds(index uint64) error {
	return &IndexOutOfBoundsError{Index: index}
}
