package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Heap Creation Utilities
// ============================================================================

// newTestHeap creates a heap with a small reservation so exhaustion paths
// are cheap to reach. Closed automatically at the end of the test.
func newTestHeap(t testing.TB, maxPages int) *Heap {
	t.Helper()

	h, err := New(&Options{MaxSegmentSize: maxPages * PageSize})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// mustAlloc allocates n bytes and fails the test on error.
func mustAlloc(t testing.TB, h *Heap, n int) Ref {
	t.Helper()

	ref, payload, err := h.Alloc(n)
	require.NoError(t, err, "Alloc(%d)", n)
	require.NotEqual(t, Nil, ref)
	require.Len(t, payload, n)
	return ref
}

// ============================================================================
// Invariant Checks
// ============================================================================

// requireValid fails the test with every validation error.
func requireValid(t testing.TB, h *Heap) {
	t.Helper()

	errs := h.Check()
	for _, e := range errs {
		t.Errorf("validation: %v", e)
	}
	require.Empty(t, errs)
}

// collectBlocks returns every block in address order.
func collectBlocks(h *Heap) []BlockInfo {
	var blocks []BlockInfo
	h.Walk(func(b BlockInfo) bool {
		blocks = append(blocks, b)
		return true
	})
	return blocks
}

// freeBlocks returns only the free blocks in address order.
func freeBlocks(h *Heap) []BlockInfo {
	var free []BlockInfo
	for _, b := range collectBlocks(h) {
		if !b.Allocated {
			free = append(free, b)
		}
	}
	return free
}

// requireTiled checks that blocks cover the committed extent exactly and
// that no two free blocks are adjacent.
func requireTiled(t testing.TB, h *Heap) {
	t.Helper()

	next := uint64(firstBlock)
	prevFree := false
	var freeSum uint64
	for _, b := range collectBlocks(h) {
		require.Equal(t, next, b.Offset, "gap or overlap before block 0x%X", b.Offset)
		require.False(t, prevFree && !b.Allocated, "adjacent free blocks at 0x%X", b.Offset)
		prevFree = !b.Allocated
		if !b.Allocated {
			freeSum += b.Size
		}
		next = b.Offset + blockOverhead + b.Size
	}
	require.Equal(t, uint64(h.SegmentSize()-epilogueSize), next, "blocks do not reach the epilogue")
	require.Equal(t, uint64(h.FreeBytes()), freeSum, "free byte counter")
}

// firstFree returns the head of the first non-empty bucket.
func firstFree(t testing.TB, h *Heap) (blockRef, int) {
	t.Helper()

	for i, b := range h.buckets {
		if b != nilBlock {
			return b, i
		}
	}
	t.Fatal("no free block")
	return nilBlock, -1
}

// hasErrorType reports whether errs contains a violation of the given type.
func hasErrorType(errs []*ValidationError, typ string) bool {
	for _, e := range errs {
		if e.Type == typ {
			return true
		}
	}
	return false
}
