// Package arena provides the node arena that backs every bucket's chain.
//
// Nodes are addressed by Slot, a plain integer index into a growable slice.
// Slot 0 is reserved as Nil and is never minted, so a zero-valued link always
// means "no node".
//
// # Recycling
//
// Freed slots are pushed onto a LIFO free-list and handed out again before a
// new slot is minted. Under push/pop churn the minted range therefore stays
// bounded by the peak number of live nodes.
//
// # Concurrency
//
// Arena is not safe for concurrent use. Callers serialize access.
package arena
