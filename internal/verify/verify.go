// Package verify checks the structural invariants of an arena and its bucket
// registry.
//
// Reachable and free slots are tracked in roaring bitmaps so a full check is a
// single O(minted) pass regardless of how sparse the slot space is.
package verify

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/linkedseq/internal/arena"
	"github.com/hupe1980/linkedseq/internal/registry"
)

// ErrViolation matches every *ViolationError under errors.Is.
var ErrViolation = errors.New("invariant violation")

// ViolationError describes the first broken invariant found.
type ViolationError struct {
	Bucket any // nil for arena-level violations
	Slot   arena.Slot
	Reason string
}

func (e *ViolationError) Error() string {
	if e.Bucket == nil {
		return fmt.Sprintf("invariant violation at slot %d: %s", e.Slot, e.Reason)
	}
	return fmt.Sprintf("invariant violation in bucket %v at slot %d: %s", e.Bucket, e.Slot, e.Reason)
}

// Is reports whether target is ErrViolation.
func (e *ViolationError) Is(target error) bool {
	return target == ErrViolation
}

// Report summarizes a successful check.
type Report struct {
	Buckets   int
	Reachable uint64
	Free      uint64
	Minted    uint64
}

// Check walks every bucket and the free-list and verifies that
//   - headers are consistent (Head, Tail and Length agree on emptiness),
//   - walking Next from Head for Length steps ends at Tail and Prev links mirror Next links,
//   - no slot is reachable twice, from one bucket or from two,
//   - free slots are unreachable and every minted slot is either reachable or free.
func Check[K comparable](a *arena.Arena, r *registry.Registry[K]) (Report, error) {
	minted := a.Minted()

	free := roaring64.New()
	for _, s := range a.FreeSlots() {
		if s == arena.Nil || uint64(s) > minted {
			return Report{}, &ViolationError{Slot: s, Reason: "free slot out of range"}
		}
		if free.Contains(uint64(s)) {
			return Report{}, &ViolationError{Slot: s, Reason: "slot on the free-list twice"}
		}
		free.Add(uint64(s))
	}

	reachable := roaring64.New()
	var verr error
	r.Range(func(bucket K, h registry.Header) bool {
		verr = checkChain(a, minted, free, reachable, bucket, h)
		return verr == nil
	})
	if verr != nil {
		return Report{}, verr
	}

	rep := Report{
		Buckets:   r.Len(),
		Reachable: reachable.GetCardinality(),
		Free:      free.GetCardinality(),
		Minted:    minted,
	}
	if rep.Reachable+rep.Free != minted {
		return Report{}, &ViolationError{
			Reason: fmt.Sprintf("%d minted slots but %d reachable and %d free", minted, rep.Reachable, rep.Free),
		}
	}
	return rep, nil
}

func checkChain[K comparable](a *arena.Arena, minted uint64, free, reachable *roaring64.Bitmap, bucket K, h registry.Header) error {
	fail := func(s arena.Slot, reason string) error {
		return &ViolationError{Bucket: bucket, Slot: s, Reason: reason}
	}

	if h.Length == 0 || h.Head == arena.Nil || h.Tail == arena.Nil {
		return fail(h.Head, fmt.Sprintf("inconsistent header head=%d tail=%d length=%d", h.Head, h.Tail, h.Length))
	}

	prev := arena.Nil
	s := h.Head
	for i := uint64(0); i < h.Length; i++ {
		if s == arena.Nil || uint64(s) > minted {
			return fail(s, fmt.Sprintf("chain broken after %d of %d nodes", i, h.Length))
		}
		if free.Contains(uint64(s)) {
			return fail(s, "reachable slot is on the free-list")
		}
		if reachable.Contains(uint64(s)) {
			return fail(s, "slot reachable twice")
		}
		reachable.Add(uint64(s))

		n := a.Get(s)
		if n.Prev != prev {
			return fail(s, fmt.Sprintf("prev link %d does not mirror predecessor %d", n.Prev, prev))
		}
		prev = s
		s = n.Next
	}

	if prev != h.Tail {
		return fail(prev, fmt.Sprintf("walk ended at %d, header tail is %d", prev, h.Tail))
	}
	if s != arena.Nil {
		return fail(prev, "tail has a successor")
	}
	return nil
}
