package list

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfBounds matches every *IndexOutOfBoundsError under errors.Is.
var ErrIndexOutOfBounds = errors.New("linked list index out of bounds")

// IndexOutOfBoundsError reports a position outside the valid range of the
// targeted operation.
type IndexOutOfBoundsError struct {
	Index uint64
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("linked list index out of bounds: %d", e.Index)
}

// Is reports whether target is ErrIndexOutOfBounds.
func (e *IndexOutOfBoundsError) Is(target error) bool {
	return target == ErrIndexOutOfBounds
}

func outOfBounds(index uint64) error {
	return &IndexOutOfBoundsError{Index: index}
}
