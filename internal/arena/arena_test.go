package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_Allocate(t *testing.T) {
	t.Run("mints from one", func(t *testing.T) {
		a := New()

		s1 := a.Allocate(10)
		s2 := a.Allocate(20)

		assert.Equal(t, Slot(1), s1)
		assert.Equal(t, Slot(2), s2)
		assert.Equal(t, uint64(2), a.Minted())
		assert.Equal(t, Node{Value: 10}, a.Get(s1))
		assert.Equal(t, Node{Value: 20}, a.Get(s2))
	})

	t.Run("never mints nil", func(t *testing.T) {
		a := New()
		for i := 0; i < 100; i++ {
			assert.NotEqual(t, Nil, a.Allocate(uint64(i)))
		}
	})

	t.Run("exhaustion panics", func(t *testing.T) {
		a := New(WithMaxSlots(2))
		a.Allocate(1)
		a.Allocate(2)

		assert.PanicsWithValue(t, ErrExhausted, func() { a.Allocate(3) })
	})

	t.Run("recycled slot does not count against the limit", func(t *testing.T) {
		a := New(WithMaxSlots(1))
		assert.True(t, a.CanAllocate())
		s := a.Allocate(1)
		assert.False(t, a.CanAllocate())
		a.Free(s)
		assert.True(t, a.CanAllocate())

		assert.NotPanics(t, func() { a.Allocate(2) })
	})
}

func TestArena_Free(t *testing.T) {
	t.Run("clears node and recycles lifo", func(t *testing.T) {
		a := New()
		s1 := a.Allocate(1)
		s2 := a.Allocate(2)
		s3 := a.Allocate(3)
		a.SetNext(s1, s2)
		a.SetPrev(s2, s1)

		a.Free(s2)
		a.Free(s1)

		assert.Equal(t, []Slot{s2, s1}, a.FreeSlots())
		assert.Equal(t, s1, a.Allocate(7))
		assert.Equal(t, Node{Value: 7}, a.Get(s1), "recycled node must not keep stale links")
		assert.Equal(t, s2, a.Allocate(8))
		assert.Equal(t, Slot(4), a.Allocate(9))
		assert.Equal(t, uint64(3), a.Value(s3))
	})

	t.Run("churn keeps the counter bounded", func(t *testing.T) {
		a := New()
		for i := 0; i < 1000; i++ {
			s := a.Allocate(uint64(i))
			a.Free(s)
		}
		assert.Equal(t, uint64(1), a.Minted())

		st := a.Stats()
		assert.Equal(t, uint64(1000), st.TotalAllocs)
		assert.Equal(t, uint64(1000), st.TotalFrees)
		assert.Equal(t, uint64(999), st.Recycled)
		assert.Equal(t, uint64(0), st.Live)
		assert.Equal(t, uint64(1), st.Free)
	})
}

func TestArena_Links(t *testing.T) {
	a := New()
	s1 := a.Allocate(1)
	s2 := a.Allocate(2)

	a.SetNext(s1, s2)
	a.SetPrev(s2, s1)

	assert.Equal(t, s2, a.NextOf(s1))
	assert.Equal(t, s1, a.PrevOf(s2))
	assert.Equal(t, Nil, a.PrevOf(s1))
	assert.Equal(t, Nil, a.NextOf(s2))
}

func TestArena_OutOfRangePanics(t *testing.T) {
	a := New()
	a.Allocate(1)

	assert.Panics(t, func() { a.Get(Nil) })
	assert.Panics(t, func() { a.Get(2) })
	assert.Panics(t, func() { a.Free(5) })
}

func TestRestore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		a := New()
		s1 := a.Allocate(1)
		s2 := a.Allocate(2)
		a.SetNext(s1, s2)
		a.SetPrev(s2, s1)
		s3 := a.Allocate(3)
		a.Free(s3)

		b, err := Restore(a.Nodes(), a.FreeSlots())
		require.NoError(t, err)

		assert.Equal(t, a.Nodes(), b.Nodes())
		assert.Equal(t, a.FreeSlots(), b.FreeSlots())
		assert.Equal(t, s3, b.Allocate(4), "restored free-list must be consulted first")
	})

	tests := []struct {
		name  string
		nodes []Node
		free  []Slot
	}{
		{name: "missing sentinel", nodes: nil},
		{name: "dirty sentinel", nodes: []Node{{Value: 1}}},
		{name: "free nil", nodes: []Node{{}, {}}, free: []Slot{Nil}},
		{name: "free out of range", nodes: []Node{{}, {}}, free: []Slot{2}},
		{name: "free duplicate", nodes: []Node{{}, {}}, free: []Slot{1, 1}},
		{name: "free holds node", nodes: []Node{{}, {Value: 9}}, free: []Slot{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.nodes, tt.free)
			require.ErrorIs(t, err, ErrInvalidState)
		})
	}

	t.Run("limit", func(t *testing.T) {
		_, err := Restore([]Node{{}, {}, {}}, nil, WithMaxSlots(1))
		require.ErrorIs(t, err, ErrInvalidState)
	})
}
