package testutil

import (
	"math/rand"
	"slices"
	"sync"
)

// OpKind identifies a list mutation.
type OpKind uint8

const (
	OpPush OpKind = iota + 1
	OpPop
	OpInsertAt
	OpRemoveAt
)

func (k OpKind) String() string {
	switch k {
	case OpPush:
		return "push"
	case OpPop:
		return "pop"
	case OpInsertAt:
		return "insertAt"
	case OpRemoveAt:
		return "removeAt"
	default:
		return "unknown"
	}
}

// Op is one generated mutation.
type Op struct {
	Kind   OpKind
	Bucket uint64
	Index  uint64
	Value  uint64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Uint64n returns a pseudo-random number in [0, n).
func (r *RNG) Uint64n(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(r.rand.Int63n(int64(n)))
}

// Values returns n pseudo-random values below 1000.
func (r *RNG) Values(n int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(r.rand.Intn(1000))
	}
	return out
}

// Op generates a random mutation against one of buckets buckets. Roughly one
// in ten positional operations uses an out-of-range index.
func (r *RNG) Op(m *Model, buckets uint64) Op {
	r.mu.Lock()
	defer r.mu.Unlock()

	op := Op{
		Kind:   OpKind(r.rand.Intn(4) + 1),
		Bucket: uint64(r.rand.Int63n(int64(buckets))),
		Value:  uint64(r.rand.Intn(1000)),
	}

	n := uint64(len(m.Values(op.Bucket)))
	invalid := r.rand.Intn(10) == 0
	switch op.Kind {
	case OpInsertAt:
		if invalid {
			op.Index = n + 1 + uint64(r.rand.Intn(3))
		} else {
			op.Index = uint64(r.rand.Int63n(int64(n + 1)))
		}
	case OpRemoveAt:
		if invalid || n == 0 {
			op.Index = n + uint64(r.rand.Intn(3))
		} else {
			op.Index = uint64(r.rand.Int63n(int64(n)))
		}
	}
	return op
}

// Model is a slice-backed reference implementation of a bucketed list.
type Model struct {
	buckets map[uint64][]uint64
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{buckets: make(map[uint64][]uint64)}
}

// Values returns the values of bucket. The slice must not be modified.
func (m *Model) Values(bucket uint64) []uint64 {
	return m.buckets[bucket]
}

// Apply applies op and reports whether it was in range. Out-of-range
// operations leave the model unchanged.
func (m *Model) Apply(op Op) bool {
	vals := m.buckets[op.Bucket]
	n := uint64(len(vals))

	switch op.Kind {
	case OpPush:
		m.buckets[op.Bucket] = append(vals, op.Value)
	case OpPop:
		if n == 0 {
			return false
		}
		m.set(op.Bucket, vals[:n-1])
	case OpInsertAt:
		if op.Index > n {
			return false
		}
		m.buckets[op.Bucket] = slices.Insert(vals, int(op.Index), op.Value)
	case OpRemoveAt:
		if op.Index >= n {
			return false
		}
		m.set(op.Bucket, slices.Delete(vals, int(op.Index), int(op.Index)+1))
	default:
		return false
	}
	return true
}

func (m *Model) set(bucket uint64, vals []uint64) {
	if len(vals) == 0 {
		delete(m.buckets, bucket)
		return
	}
	m.buckets[bucket] = vals
}
