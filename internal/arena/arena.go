package arena

import (
	"errors"
	"fmt"
	"math"
)

// Slot is the address of a node inside the arena.
type Slot uint64

// Nil is the reserved "no node" slot. It is never minted.
const Nil Slot = 0

// DefaultMaxSlots is the largest slot the arena will mint by default.
const DefaultMaxSlots = math.MaxUint32

var (
	// ErrExhausted is the panic value raised when the slot counter would pass the limit.
	ErrExhausted = errors.New("arena: slot space exhausted")
	// ErrInvalidState is returned by Restore when the supplied state is inconsistent.
	ErrInvalidState = errors.New("arena: invalid state")
)

// Node is a single chain element.
type Node struct {
	Value uint64
	Prev  Slot
	Next  Slot
}

// Stats tracks arena usage.
//
//   - Minted: slots ever minted (the allocation counter)
//   - Live: minted slots not on the free-list
//   - Free: slots waiting on the free-list
//   - TotalAllocs / TotalFrees / Recycled: cumulative counters since New or Restore
type Stats struct {
	Minted      uint64
	Live        uint64
	Free        uint64
	TotalAllocs uint64
	TotalFrees  uint64
	Recycled    uint64
}

// Arena owns all nodes across all buckets.
type Arena struct {
	nodes    []Node // nodes[0] is the Nil sentinel
	free     []Slot // LIFO stack of recycled slots
	maxSlots uint64

	totalAllocs uint64
	totalFrees  uint64
	recycled    uint64
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMaxSlots caps the number of slots the arena may mint.
func WithMaxSlots(n uint64) Option {
	return func(a *Arena) {
		if n > 0 {
			a.maxSlots = n
		}
	}
}

// WithCapacity pre-sizes the node storage.
func WithCapacity(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.nodes = make([]Node, 1, n+1)
		}
	}
}

// New creates an empty Arena.
func New(opts ...Option) *Arena {
	a := &Arena{
		nodes:    make([]Node, 1),
		maxSlots: DefaultMaxSlots,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns a slot holding a fresh node with the given value and no links.
// A recycled slot is preferred over minting a new one.
//
// Allocate panics with ErrExhausted when the slot limit is reached.
func (a *Arena) Allocate(value uint64) Slot {
	a.totalAllocs++

	if n := len(a.free); n > 0 {
		s := a.free[n-1]
		a.free = a.free[:n-1]
		a.recycled++
		a.nodes[s] = Node{Value: value}
		return s
	}

	next := uint64(len(a.nodes))
	if next > a.maxSlots {
		panic(ErrExhausted)
	}
	a.nodes = append(a.nodes, Node{Value: value})
	return Slot(next)
}

// Free clears the node at s and returns the slot to the free-list.
// The caller must have unlinked s from its chain.
func (a *Arena) Free(s Slot) {
	a.check(s)
	a.nodes[s] = Node{}
	a.free = append(a.free, s)
	a.totalFrees++
}

// Get returns a copy of the node at s.
func (a *Arena) Get(s Slot) Node {
	a.check(s)
	return a.nodes[s]
}

// Value returns the value stored at s.
func (a *Arena) Value(s Slot) uint64 {
	a.check(s)
	return a.nodes[s].Value
}

// PrevOf returns the predecessor link of s.
func (a *Arena) PrevOf(s Slot) Slot {
	a.check(s)
	return a.nodes[s].Prev
}

// NextOf returns the successor link of s.
func (a *Arena) NextOf(s Slot) Slot {
	a.check(s)
	return a.nodes[s].Next
}

// SetPrev sets the predecessor link of s.
func (a *Arena) SetPrev(s, prev Slot) {
	a.check(s)
	a.nodes[s].Prev = prev
}

// SetNext sets the successor link of s.
func (a *Arena) SetNext(s, next Slot) {
	a.check(s)
	a.nodes[s].Next = next
}

// CanAllocate reports whether Allocate would succeed without panicking.
func (a *Arena) CanAllocate() bool {
	return len(a.free) > 0 || uint64(len(a.nodes)) <= a.maxSlots
}

// Minted returns the allocation counter: the number of slots ever minted.
func (a *Arena) Minted() uint64 {
	return uint64(len(a.nodes) - 1)
}

// FreeSlots returns a copy of the free-list, bottom of the stack first.
func (a *Arena) FreeSlots() []Slot {
	out := make([]Slot, len(a.free))
	copy(out, a.free)
	return out
}

// Nodes returns a copy of every minted node indexed by slot, including the
// Nil sentinel at index 0.
func (a *Arena) Nodes() []Node {
	out := make([]Node, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() Stats {
	minted := a.Minted()
	free := uint64(len(a.free))
	return Stats{
		Minted:      minted,
		Live:        minted - free,
		Free:        free,
		TotalAllocs: a.totalAllocs,
		TotalFrees:  a.totalFrees,
		Recycled:    a.recycled,
	}
}

// Restore rebuilds an arena from persisted state.
//
// nodes is indexed by slot and must include the Nil sentinel at index 0.
// free is the free-list, bottom of the stack first. Every free slot must be
// minted, unique and cleared.
func Restore(nodes []Node, free []Slot, opts ...Option) (*Arena, error) {
	a := New(opts...)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: missing sentinel", ErrInvalidState)
	}
	if nodes[0] != (Node{}) {
		return nil, fmt.Errorf("%w: sentinel slot is not empty", ErrInvalidState)
	}
	if uint64(len(nodes)-1) > a.maxSlots {
		return nil, fmt.Errorf("%w: %d slots exceed limit %d", ErrInvalidState, len(nodes)-1, a.maxSlots)
	}

	seen := make(map[Slot]struct{}, len(free))
	for _, s := range free {
		if s == Nil || uint64(s) >= uint64(len(nodes)) {
			return nil, fmt.Errorf("%w: free slot %d out of range", ErrInvalidState, s)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: free slot %d listed twice", ErrInvalidState, s)
		}
		if nodes[s] != (Node{}) {
			return nil, fmt.Errorf("%w: free slot %d holds a node", ErrInvalidState, s)
		}
		seen[s] = struct{}{}
	}

	a.nodes = make([]Node, len(nodes))
	copy(a.nodes, nodes)
	a.free = make([]Slot, len(free))
	copy(a.free, free)
	return a, nil
}

func (a *Arena) check(s Slot) {
	if s == Nil || uint64(s) >= uint64(len(a.nodes)) {
		panic(fmt.Sprintf("arena: slot %d out of range [1, %d)", s, len(a.nodes)))
	}
}
