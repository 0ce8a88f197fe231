package alloc

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/internal/format"
)

// Walk calls fn for every block in address order, from the first block up
// to the epilogue. Iteration stops early when fn returns false.
func (h *Heap) Walk(fn func(BlockInfo) bool) {
	if len(h.mem) == 0 {
		return
	}
	epilogue := blockRef(uint64(len(h.mem)) - epilogueSize)
	for b := blockRef(firstBlock); b < epilogue; b = h.right(b) {
		tag := h.tag(b)
		info := BlockInfo{
			Offset:    uint64(b),
			Payload:   b.payload(),
			Size:      h.size(b),
			Allocated: format.IsAllocated(tag),
		}
		if !fn(info) {
			return
		}
	}
}

// DumpFreeLists writes every non-empty bucket with its nodes, one line per
// bucket. Intended for debugging.
func (h *Heap) DumpFreeLists(w io.Writer) error {
	for i := 0; i < NumBuckets; i++ {
		if h.buckets[i] == nilBlock {
			continue
		}
		if _, err := fmt.Fprintf(w, "bucket %2d:", i); err != nil {
			return err
		}
		count := 0
		for b := h.buckets[i]; b != nilBlock; b = h.node(b).next() {
			// Corrupted lists may loop; Check reports those.
			if count++; count > 1024 {
				if _, err := fmt.Fprint(w, " ..."); err != nil {
					return err
				}
				break
			}
			if _, err := fmt.Fprintf(w, " 0x%X(%d)", uint64(b), h.size(b)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns a snapshot of the allocator counters.
func (h *Heap) Stats() Stats {
	return h.stats
}

// SegmentStart returns the base address of the heap segment.
func (h *Heap) SegmentStart() uintptr {
	if h.seg == nil {
		return 0
	}
	return h.seg.Start()
}

// SegmentSize returns the number of committed bytes.
func (h *Heap) SegmentSize() int {
	if h.seg == nil {
		return 0
	}
	return h.seg.Size()
}

// FreeBytes returns the summed payload size of all free blocks.
func (h *Heap) FreeBytes() int {
	return int(h.freeBytes)
}
