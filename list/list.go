package list

import (
	"iter"

	"github.com/hupe1980/linkedseq/internal/arena"
	"github.com/hupe1980/linkedseq/internal/registry"
)

// Stats summarizes the shared arena and the registry.
type Stats struct {
	// Buckets is the number of non-empty buckets.
	Buckets int
	// Minted is the allocation counter: slots ever minted.
	Minted uint64
	// Live is the number of nodes currently linked into some bucket.
	Live uint64
	// Free is the number of recycled slots waiting for reuse.
	Free uint64
	// Recycled counts allocations served from the free-list.
	Recycled uint64
}

type options struct {
	arenaOpts []arena.Option
}

// Option configures Lists.
type Option func(*options)

// WithMaxSlots caps the number of arena slots. Minting past the cap panics.
func WithMaxSlots(n uint64) Option {
	return func(o *options) {
		o.arenaOpts = append(o.arenaOpts, arena.WithMaxSlots(n))
	}
}

// WithCapacity pre-sizes the arena for n nodes.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.arenaOpts = append(o.arenaOpts, arena.WithCapacity(n))
	}
}

// Lists is a set of buckets, each holding one doubly-linked list, over one
// shared node arena.
type Lists[K comparable] struct {
	arena *arena.Arena
	reg   *registry.Registry[K]
}

// New creates an empty Lists.
func New[K comparable](optFns ...Option) *Lists[K] {
	var o options
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return &Lists[K]{
		arena: arena.New(o.arenaOpts...),
		reg:   registry.New[K](),
	}
}

// FromState wraps an already populated arena and registry, e.g. after a
// snapshot restore. The caller is responsible for their consistency.
func FromState[K comparable](a *arena.Arena, r *registry.Registry[K]) *Lists[K] {
	return &Lists[K]{arena: a, reg: r}
}

// Arena exposes the backing arena for persistence and verification.
func (l *Lists[K]) Arena() *arena.Arena { return l.arena }

// Registry exposes the bucket registry for persistence and verification.
func (l *Lists[K]) Registry() *registry.Registry[K] { return l.reg }

// Len returns the number of values in bucket.
func (l *Lists[K]) Len(bucket K) uint64 {
	return l.reg.Get(bucket).Length
}

// Buckets returns the keys of every non-empty bucket in unspecified order.
func (l *Lists[K]) Buckets() []K {
	return l.reg.Keys()
}

// Stats returns arena and registry counters.
func (l *Lists[K]) Stats() Stats {
	st := l.arena.Stats()
	return Stats{
		Buckets:  l.reg.Len(),
		Minted:   st.Minted,
		Live:     st.Live,
		Free:     st.Free,
		Recycled: st.Recycled,
	}
}

// Peek returns the last value of bucket.
func (l *Lists[K]) Peek(bucket K) (uint64, error) {
	h := l.reg.Get(bucket)
	if h.IsEmpty() {
		return 0, outOfBounds(0)
	}
	return l.arena.Value(h.Tail), nil
}

// At returns the value at index in bucket.
func (l *Lists[K]) At(bucket K, index uint64) (uint64, error) {
	h := l.reg.Get(bucket)
	if index >= h.Length {
		return 0, outOfBounds(index)
	}
	return l.arena.Value(l.locate(h, index)), nil
}

// Push appends v to the end of bucket.
func (l *Lists[K]) Push(bucket K, v uint64) {
	h := l.reg.Get(bucket)
	s := l.arena.Allocate(v)

	if h.IsEmpty() {
		h.Head = s
	} else {
		l.arena.SetPrev(s, h.Tail)
		l.arena.SetNext(h.Tail, s)
	}
	h.Tail = s
	h.Length++

	l.reg.Set(bucket, h)
}

// Pop removes and returns the last value of bucket.
func (l *Lists[K]) Pop(bucket K) (uint64, error) {
	n := l.Len(bucket)
	if n == 0 {
		return 0, outOfBounds(0)
	}
	return l.RemoveAt(bucket, n-1)
}

// InsertAt inserts v so that it ends up at position index. Values previously
// at positions >= index move one position later. index == Len(bucket)
// appends.
func (l *Lists[K]) InsertAt(bucket K, index, v uint64) error {
	h := l.reg.Get(bucket)
	if index > h.Length {
		return outOfBounds(index)
	}
	if index == h.Length {
		l.Push(bucket, v)
		return nil
	}

	target := l.locate(h, index)
	prev := l.arena.PrevOf(target)

	s := l.arena.Allocate(v)
	l.arena.SetPrev(s, prev)
	l.arena.SetNext(s, target)
	l.arena.SetPrev(target, s)

	if prev == arena.Nil {
		h.Head = s
	} else {
		l.arena.SetNext(prev, s)
	}
	h.Length++

	l.reg.Set(bucket, h)
	return nil
}

// RemoveAt removes and returns the value at index.
func (l *Lists[K]) RemoveAt(bucket K, index uint64) (uint64, error) {
	h := l.reg.Get(bucket)
	if index >= h.Length {
		return 0, outOfBounds(index)
	}

	target := l.locate(h, index)
	n := l.arena.Get(target)

	if n.Prev == arena.Nil {
		h.Head = n.Next
	} else {
		l.arena.SetNext(n.Prev, n.Next)
	}
	if n.Next == arena.Nil {
		h.Tail = n.Prev
	} else {
		l.arena.SetPrev(n.Next, n.Prev)
	}

	l.arena.Free(target)
	h.Length--

	l.reg.Set(bucket, h)
	return n.Value, nil
}

// Values returns an iterator over bucket from head to tail. Every call starts
// a fresh walk of exactly Len(bucket) values. The bucket must not be mutated
// while the iteration is in progress.
func (l *Lists[K]) Values(bucket K) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		h := l.reg.Get(bucket)
		s := h.Head
		for i := uint64(0); i < h.Length; i++ {
			n := l.arena.Get(s)
			if !yield(n.Value) {
				return
			}
			s = n.Next
		}
	}
}

// Slice returns the values of bucket from head to tail.
func (l *Lists[K]) Slice(bucket K) []uint64 {
	out := make([]uint64, 0, l.Len(bucket))
	for v := range l.Values(bucket) {
		out = append(out, v)
	}
	return out
}

// locate returns the slot at index, walking from the nearer end.
// index must be < h.Length.
func (l *Lists[K]) locate(h registry.Header, index uint64) arena.Slot {
	if index < h.Length-index {
		s := h.Head
		for i := uint64(0); i < index; i++ {
			s = l.arena.NextOf(s)
		}
		return s
	}

	s := h.Tail
	for i := h.Length - 1; i > index; i-- {
		s = l.arena.PrevOf(s)
	}
	return s
}
