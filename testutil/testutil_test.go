package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModel_Apply(t *testing.T) {
	m := NewModel()

	assert.True(t, m.Apply(Op{Kind: OpPush, Value: 1}))
	assert.True(t, m.Apply(Op{Kind: OpPush, Value: 3}))
	assert.True(t, m.Apply(Op{Kind: OpInsertAt, Index: 1, Value: 2}))
	assert.Equal(t, []uint64{1, 2, 3}, m.Values(0))

	assert.False(t, m.Apply(Op{Kind: OpInsertAt, Index: 4, Value: 9}))
	assert.False(t, m.Apply(Op{Kind: OpRemoveAt, Index: 3}))
	assert.Equal(t, []uint64{1, 2, 3}, m.Values(0))

	assert.True(t, m.Apply(Op{Kind: OpRemoveAt, Index: 0}))
	assert.True(t, m.Apply(Op{Kind: OpPop}))
	assert.True(t, m.Apply(Op{Kind: OpPop}))
	assert.Empty(t, m.Values(0))
	assert.False(t, m.Apply(Op{Kind: OpPop}))
}

func TestRNG_OpDeterministic(t *testing.T) {
	gen := func() []Op {
		rng := NewRNG(4711)
		m := NewModel()
		ops := make([]Op, 200)
		for i := range ops {
			ops[i] = rng.Op(m, 3)
			m.Apply(ops[i])
		}
		return ops
	}

	a, b := gen(), gen()
	assert.Equal(t, a, b)
	for _, op := range a {
		assert.Less(t, op.Bucket, uint64(3))
		assert.NotEqual(t, "unknown", op.Kind.String())
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(42)
	first := rng.Values(5)
	rng.Reset()
	assert.Equal(t, first, rng.Values(5))
}
