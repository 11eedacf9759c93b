// Package testutil provides testing utilities for linkedseq.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Workloads
//
//	rng := testutil.NewRNG(seed)
//	model := testutil.NewModel()
//	for range 1000 {
//	    op := rng.Op(model, 4)   // 4 buckets
//	    model.Apply(op)
//	}
//
// # Reference Model
//
// Model is a slice-backed oracle with the same observable semantics as
// list.Lists. Compare list.Lists.Slice against Model.Values after every step.
package testutil
