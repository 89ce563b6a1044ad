package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTable_InsertGetRemove(t *testing.T) {
	h := NewHandleTable[string]()

	a := h.Insert("a")
	b := h.Insert("b")
	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)
	assert.Equal(t, 2, h.Len())

	v, ok := h.Get(a)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = h.Get(0)
	assert.False(t, ok, "zero ID never resolves")
	_, ok = h.Get(99)
	assert.False(t, ok)

	v, ok = h.Remove(a)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, h.Len())

	_, ok = h.Get(a)
	assert.False(t, ok)
	_, ok = h.Remove(a)
	assert.False(t, ok, "double remove is a no-op")
	assert.Equal(t, 1, h.Len())
}

func TestHandleTable_ReusedSlotGetsNewID(t *testing.T) {
	h := NewHandleTable[int]()
	first := h.Insert(10)
	h.Insert(20)
	h.Remove(first)

	again := h.Insert(30)
	assert.NotEqual(t, first, again)
	assert.Equal(t, first&slotMask, again&slotMask, "slot is reused")
	assert.Equal(t, 2, h.Len())

	v, ok := h.Get(again)
	require.True(t, ok)
	assert.Equal(t, 30, v)

	// a stale ID does not reach the new occupant
	_, ok = h.Get(first)
	assert.False(t, ok)
	_, ok = h.Remove(first)
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestHandleTable_Each(t *testing.T) {
	h := NewHandleTable[int]()
	h.Insert(1)
	mid := h.Insert(2)
	h.Insert(3)
	h.Remove(mid)

	h.Insert(4)

	var seen []int
	h.Each(func(id uint32, v int) {
		got, ok := h.Get(id)
		require.True(t, ok)
		assert.Equal(t, v, got)
		seen = append(seen, v)
	})
	assert.Equal(t, []int{1, 4, 3}, seen)
}
