// Implements the KernelBuffer (the admission window) and the StreamSet of
// busy streams.

package sim

import (
	"fmt"
	"slices"
	"strings"
)

// KernelRecord is one kernel tracked by the admission window, from the moment
// its launch command is read until cleanup.
type KernelRecord struct {
	UID      uint64 // unique, > 0
	Name     string
	StreamID uint64
	Launched bool
	Info     *KernelInfo
}

func (k *KernelRecord) String() string {
	return fmt.Sprintf("%s#%d@%d", k.Name, k.UID, k.StreamID)
}

// KernelBuffer is the ordered admission window. Order is admission order.
type KernelBuffer struct {
	kernels []*KernelRecord
}

// Enqueue adds a kernel to the back of the buffer.
func (kb *KernelBuffer) Enqueue(k *KernelRecord) {
	if k == nil {
		panic("Enqueue: kernel must not be nil")
	}
	kb.kernels = append(kb.kernels, k)
}

func (kb *KernelBuffer) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, k := range kb.kernels {
		sb.WriteString(k.String())
		if i < len(kb.kernels)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of buffered kernels.
func (kb *KernelBuffer) Len() int {
	return len(kb.kernels)
}

// Items returns the buffer contents for iteration.
// The returned slice is the buffer's internal storage -- callers MUST NOT
// append to or reslice it. Use RemoveAt to delete.
func (kb *KernelBuffer) Items() []*KernelRecord {
	return kb.kernels
}

// RemoveAt deletes and returns the kernel at index i, preserving order.
func (kb *KernelBuffer) RemoveAt(i int) *KernelRecord {
	if i < 0 || i >= len(kb.kernels) {
		panic(fmt.Sprintf("RemoveAt: index %d out of range [0,%d)", i, len(kb.kernels)))
	}
	k := kb.kernels[i]
	kb.kernels = slices.Delete(kb.kernels, i, i+1)
	return k
}

// Reset empties the buffer.
func (kb *KernelBuffer) Reset() {
	kb.kernels = nil
}

// StreamSet holds the streams occupied by a launched, not yet cleaned kernel.
type StreamSet struct {
	busy map[uint64]struct{}
}

// NewStreamSet returns an empty set.
func NewStreamSet() *StreamSet {
	return &StreamSet{busy: make(map[uint64]struct{})}
}

// Add marks stream busy.
func (s *StreamSet) Add(stream uint64) {
	s.busy[stream] = struct{}{}
}

// Remove frees stream. Removing an idle stream is a no-op.
func (s *StreamSet) Remove(stream uint64) {
	delete(s.busy, stream)
}

// Contains reports whether stream is busy.
func (s *StreamSet) Contains(stream uint64) bool {
	_, ok := s.busy[stream]
	return ok
}

// Len returns the number of busy streams.
func (s *StreamSet) Len() int {
	return len(s.busy)
}

// IDs returns the busy streams in ascending order.
func (s *StreamSet) IDs() []uint64 {
	ids := make([]uint64, 0, len(s.busy))
	for id := range s.busy {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reset frees every stream.
func (s *StreamSet) Reset() {
	clear(s.busy)
}
