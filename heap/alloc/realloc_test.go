package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fillPattern(b []byte, id byte) {
	for i := range b {
		b[i] = id
	}
}

func requirePattern(t *testing.T, b []byte, id byte) {
	t.Helper()
	for i, v := range b {
		if v != id {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, v, id)
		}
	}
}

func Test_Realloc_NilActsAsAlloc(t *testing.T) {
	h := newTestHeap(t, 64)

	ref, payload, err := h.Realloc(Nil, 40)
	require.NoError(t, err)
	require.NotEqual(t, Nil, ref)
	require.Len(t, payload, 40)
	requireValid(t, h)
}

func Test_Realloc_ZeroFrees(t *testing.T) {
	h := newTestHeap(t, 64)

	ref := mustAlloc(t, h, 40)
	freeBefore := h.FreeBytes()

	got, payload, err := h.Realloc(ref, 0)
	require.NoError(t, err)
	require.Equal(t, Nil, got)
	require.Nil(t, payload)
	require.Greater(t, h.FreeBytes(), freeBefore)
	require.Equal(t, 1, h.Stats().FreeCalls)
	requireValid(t, h)
	requireTiled(t, h)
}

func Test_Realloc_ShrinkKeepsBlock(t *testing.T) {
	h := newTestHeap(t, 64)

	ref, payload, err := h.Alloc(200)
	require.NoError(t, err)
	fillPattern(payload, 0x5A)

	got, small, err := h.Realloc(ref, 50)
	require.NoError(t, err)
	require.Equal(t, ref, got)
	require.Len(t, small, 50)
	requirePattern(t, small, 0x5A)
	require.Equal(t, 1, h.Stats().ReallocInPlace)
}

func Test_Realloc_WithinUsableCapacity(t *testing.T) {
	h := newTestHeap(t, 64)

	ref := mustAlloc(t, h, 100)
	usable := h.UsableSize(ref)
	require.Equal(t, 104, usable)

	got, _, err := h.Realloc(ref, usable)
	require.NoError(t, err)
	require.Equal(t, ref, got)
}

func Test_Realloc_GrowPreservesData(t *testing.T) {
	h := newTestHeap(t, 64)

	ref := mustAlloc(t, h, 100)
	fillPattern(h.Bytes(ref), 0x42)
	// Pin the old block so it stays a separate free block after the move.
	mustAlloc(t, h, 16)

	got, grown, err := h.Realloc(ref, 1000)
	require.NoError(t, err)
	require.NotEqual(t, ref, got)
	require.Len(t, grown, 1000)
	requirePattern(t, grown[:104], 0x42)

	// Headroom: the new block holds 1.5x the request.
	require.GreaterOrEqual(t, h.UsableSize(got), 1500)
	requireValid(t, h)
	requireTiled(t, h)
}

func Test_Realloc_NoHeadroom(t *testing.T) {
	h, err := New(&Options{MaxSegmentSize: 64 * PageSize, ReallocFactor: 1})
	require.NoError(t, err)
	defer h.Close()

	ref := mustAlloc(t, h, 100)
	got, _, err := h.Realloc(ref, 1000)
	require.NoError(t, err)
	require.Equal(t, 1000, h.UsableSize(got))
}

func Test_Realloc_FallsBackToExactSize(t *testing.T) {
	const maxPages = 16
	h := newTestHeap(t, maxPages)

	ref := mustAlloc(t, h, 64)
	fillPattern(h.Bytes(ref), 0x11)

	// 1.5x this request cannot fit the reservation; the exact size can.
	n := 12 * PageSize
	got, grown, err := h.Realloc(ref, n)
	require.NoError(t, err)
	require.Len(t, grown, n)
	require.Less(t, h.UsableSize(got), n*3/2)
	requirePattern(t, grown[:64], 0x11)
	requireValid(t, h)
}

func Test_Realloc_FailureLeavesBlockIntact(t *testing.T) {
	h := newTestHeap(t, 16)

	ref := mustAlloc(t, h, 64)
	fillPattern(h.Bytes(ref), 0x77)

	_, _, err := h.Realloc(ref, 64*PageSize)
	require.ErrorIs(t, err, ErrNoSpace)
	requirePattern(t, h.Bytes(ref), 0x77)

	_, _, err = h.Realloc(ref, MaxRequest+1)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, _, err = h.Realloc(ref, -3)
	require.ErrorIs(t, err, ErrInvalidSize)
	requirePattern(t, h.Bytes(ref), 0x77)
	requireValid(t, h)
	requireTiled(t, h)
}
