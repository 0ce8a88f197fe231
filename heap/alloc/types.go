package alloc

import (
	"math"

	"github.com/joshuapare/heapkit/internal/format"
)

// Ref is a client reference: the byte offset of a payload from the start of
// the heap segment.
type Ref uint64

// Nil is the null reference.
const Nil Ref = 0

const (
	// Alignment is the alignment of every payload.
	Alignment = format.Alignment

	// PageSize is the granularity of segment growth.
	PageSize = format.PageSize

	// NumBuckets is the number of size-class lists.
	NumBuckets = 29

	// MaxRequest is the largest request Alloc and Realloc accept.
	MaxRequest = math.MaxInt32
)

const (
	wordSize = format.WordSize

	// minPayload holds the two free-list links.
	minPayload = 2 * wordSize

	// blockOverhead is the header plus the footer slot.
	blockOverhead = 2 * wordSize

	// minSplit is the smallest remainder worth carving into its own block.
	minSplit = blockOverhead + minPayload

	prologueSize = 2 * wordSize
	epilogueSize = wordSize

	// firstBlock is the header offset of the first real block.
	firstBlock = prologueSize
)

// BlockInfo describes one block seen by Walk.
type BlockInfo struct {
	Offset    uint64 // header offset from the segment start
	Payload   Ref    // payload reference
	Size      uint64 // payload size recorded in the header
	Allocated bool
}

// Stats holds allocator counters for tests and instrumentation.
type Stats struct {
	AllocCalls     int   // Total Alloc() calls
	AllocFastPath  int   // Allocations satisfied without growth
	AllocSlowPath  int   // Allocations that required growth
	FreeCalls      int   // Total Free() calls
	ReallocCalls   int   // Total Realloc() calls
	ReallocInPlace int   // Reallocs answered with the same block
	GrowCalls      int   // Segment extensions
	GrowPages      int   // Pages committed by extensions
	SplitCount     int   // Blocks split on placement
	CoalesceLeft   int   // Merges into the left neighbor
	CoalesceRight  int   // Merges with the right neighbor
	CoalesceBoth   int   // Three-way merges
	BytesAllocated int64 // Usable bytes handed out
	BytesFreed     int64 // Usable bytes returned
}
