package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelBuffer_RemoveAt_PreservesOrder(t *testing.T) {
	// GIVEN three buffered kernels
	kb := &KernelBuffer{}
	for uid := uint64(1); uid <= 3; uid++ {
		kb.Enqueue(&KernelRecord{UID: uid, Name: "k", StreamID: uid})
	}

	// WHEN the middle one is removed
	got := kb.RemoveAt(1)

	// THEN the others keep their admission order
	assert.Equal(t, uint64(2), got.UID)
	require.Equal(t, 2, kb.Len())
	assert.Equal(t, uint64(1), kb.Items()[0].UID)
	assert.Equal(t, uint64(3), kb.Items()[1].UID)
	assert.Equal(t, "[k#1@1 k#3@3]", kb.String())
}

func TestKernelBuffer_Panics(t *testing.T) {
	kb := &KernelBuffer{}
	assert.PanicsWithValue(t, "Enqueue: kernel must not be nil", func() { kb.Enqueue(nil) })
	assert.PanicsWithValue(t, "RemoveAt: index 0 out of range [0,0)", func() { kb.RemoveAt(0) })
}

func TestKernelBuffer_Reset(t *testing.T) {
	kb := &KernelBuffer{}
	kb.Enqueue(&KernelRecord{UID: 1})
	kb.Reset()
	assert.Zero(t, kb.Len())
	assert.Equal(t, "[]", kb.String())
}

func TestStreamSet(t *testing.T) {
	s := NewStreamSet()
	s.Add(7)
	s.Add(2)
	s.Add(7)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(7))
	assert.Equal(t, []uint64{2, 7}, s.IDs())

	s.Remove(7)
	s.Remove(99) // idle stream: no-op
	assert.False(t, s.Contains(7))
	assert.Equal(t, []uint64{2}, s.IDs())

	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.IDs())
}

func TestCommandKind_RoundTrip(t *testing.T) {
	for _, kind := range []CommandKind{CommandMemcpy, CommandKernelLaunch, CommandPimLayerLaunch} {
		got, ok := ParseCommandKind(kind.String())
		assert.True(t, ok, kind.String())
		assert.Equal(t, kind, got)
	}
	_, ok := ParseCommandKind("barrier")
	assert.False(t, ok)
}
