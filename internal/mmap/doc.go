// Package mmap provides read-only memory-mapped file access.
//
// The local blob store maps snapshot images instead of copying them through
// kernel buffers.
//
//	m, err := mmap.Open("snapshots/42.lseq")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// On Unix the file is mapped with mmap(2) and access hints go through
// madvise(2). Other platforms read the file into memory and ignore hints.
//
// Close is idempotent. Callers must not touch Bytes() after Close returns.
package mmap
