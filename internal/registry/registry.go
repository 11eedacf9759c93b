// Package registry maps bucket keys to list headers.
//
// Unseen keys read as the zero Header (empty list). Writing the zero Header
// forgets the key, so the registry only ever holds non-empty buckets.
package registry

import (
	"cmp"
	"slices"

	"github.com/hupe1980/linkedseq/internal/arena"
)

// Header describes one bucket's chain.
//
// Head == Nil, Tail == Nil and Length == 0 hold together or not at all.
type Header struct {
	Head   arena.Slot
	Tail   arena.Slot
	Length uint64
}

// IsEmpty reports whether h describes an empty list.
func (h Header) IsEmpty() bool {
	return h.Length == 0
}

// Registry holds the header of every non-empty bucket.
type Registry[K comparable] struct {
	headers map[K]Header
}

// New creates an empty Registry.
func New[K comparable]() *Registry[K] {
	return &Registry[K]{headers: make(map[K]Header)}
}

// Get returns the header stored for bucket, or the zero Header.
func (r *Registry[K]) Get(bucket K) Header {
	return r.headers[bucket]
}

// Set stores h for bucket, replacing any prior value.
func (r *Registry[K]) Set(bucket K, h Header) {
	if h == (Header{}) {
		delete(r.headers, bucket)
		return
	}
	r.headers[bucket] = h
}

// Len returns the number of non-empty buckets.
func (r *Registry[K]) Len() int {
	return len(r.headers)
}

// Range calls fn for every non-empty bucket in unspecified order until fn returns false.
func (r *Registry[K]) Range(fn func(bucket K, h Header) bool) {
	for k, h := range r.headers {
		if !fn(k, h) {
			return
		}
	}
}

// Keys returns the keys of every non-empty bucket in unspecified order.
func (r *Registry[K]) Keys() []K {
	keys := make([]K, 0, len(r.headers))
	for k := range r.headers {
		keys = append(keys, k)
	}
	return keys
}

// SortedKeys returns the keys of an ordered registry in ascending order.
func SortedKeys[K cmp.Ordered](r *Registry[K]) []K {
	keys := r.Keys()
	slices.Sort(keys)
	return keys
}
