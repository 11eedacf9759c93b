// Package list implements many independent doubly-linked lists of uint64
// values that share a single pointer-free node arena.
//
// Each list lives in a bucket addressed by a caller-chosen comparable key.
// Unseen buckets behave as empty lists. Links between nodes are arena slots
// rather than Go pointers, which keeps the whole structure trivially
// serializable (see package snapshot).
//
// # Operations
//
//	l := list.New[uint64]()
//	l.Push(0, 1)
//	l.Push(0, 3)
//	_ = l.InsertAt(0, 1, 2)   // [1 2 3]
//	_, _ = l.RemoveAt(0, 0)   // [2 3]
//	v, _ := l.Peek(0)         // 3
//	for v := range l.Values(0) {
//	    fmt.Println(v)
//	}
//
// Positional operations walk from whichever end of the chain is nearer, so
// locating index i in a list of n elements costs O(min(i, n-i)). Push, Pop
// and Peek are O(1).
//
// # Errors
//
// Every position-taking operation validates its index before touching any
// state and fails with *IndexOutOfBoundsError, which matches
// ErrIndexOutOfBounds under errors.Is. Pop and Peek on an empty bucket fail
// with index 0.
//
// # Concurrency
//
// Lists is not safe for concurrent use. Every method runs to completion
// without suspending; callers serialize access (the linkedseq.DB facade does
// this with a mutex).
package list
