package alloc

import (
	"math/bits"

	"github.com/joshuapare/heapkit/internal/format"
)

// bucketFor returns the size class for a payload size:
// clamp(floor(log2(size/8)), 0, NumBuckets-1).
func bucketFor(size uint64) int {
	idx := bits.Len64(size/Alignment) - 1
	if idx < 0 {
		return 0
	}
	if idx >= NumBuckets {
		return NumBuckets - 1
	}
	return idx
}

// pushFront links free block b at the head of its bucket.
func (h *Heap) pushFront(b blockRef) {
	size := h.size(b)
	i := bucketFor(size)
	head := h.buckets[i]

	n := h.node(b)
	n.setPrev(nilBlock)
	n.setNext(head)
	if head != nilBlock {
		h.node(head).setPrev(b)
	}
	h.buckets[i] = b
	h.freeBytes += size
}

// insert adds free block b to its bucket and merges it with free neighbors.
// Returns the block that survives coalescing.
func (h *Heap) insert(b blockRef) blockRef {
	h.pushFront(b)
	return h.coalesce(b)
}

// remove unlinks b from its bucket. The bucket is derived from b's current
// size, so remove must run before b's header changes. b's own link words are
// left as they were.
func (h *Heap) remove(b blockRef) {
	size := h.size(b)
	i := bucketFor(size)
	n := h.node(b)
	prev, next := n.prev(), n.next()

	switch {
	case prev == nilBlock: // head
		h.buckets[i] = next
		if next != nilBlock {
			h.node(next).setPrev(nilBlock)
		}
	case next == nilBlock: // tail
		h.node(prev).setNext(nilBlock)
	default:
		h.node(prev).setNext(next)
		h.node(next).setPrev(prev)
	}
	h.freeBytes -= size
}

// findFit returns the first free block with at least need payload bytes,
// scanning the matching bucket and then every larger one.
func (h *Heap) findFit(need uint64) (blockRef, bool) {
	for i := bucketFor(need); i < NumBuckets; i++ {
		for b := h.buckets[i]; b != nilBlock; b = h.node(b).next() {
			if h.size(b) >= need {
				return b, true
			}
		}
	}
	return nilBlock, false
}

// coalesce merges free block b with whichever neighbors are free. Every
// party is unlinked first and exactly one merged block is pushed back.
// Returns the surviving block.
func (h *Heap) coalesce(b blockRef) blockRef {
	tag := h.tag(b)
	size := format.TagSize(tag)
	leftAllocated := format.IsLeftAllocated(tag)
	r := b.rightOf(size)
	rightAllocated := h.isAllocated(r)

	switch {
	case leftAllocated && rightAllocated:
		return b

	case leftAllocated:
		h.stats.CoalesceRight++
		merged := size + h.size(r) + blockOverhead
		h.remove(b)
		h.remove(r)
		h.writeFree(b, merged, true)
		h.pushFront(b)
		return b

	case rightAllocated:
		h.stats.CoalesceLeft++
		l := h.left(b)
		ltag := h.tag(l)
		merged := format.TagSize(ltag) + size + blockOverhead
		h.remove(b)
		h.remove(l)
		h.writeFree(l, merged, format.IsLeftAllocated(ltag))
		h.pushFront(l)
		return l

	default:
		h.stats.CoalesceBoth++
		l := h.left(b)
		ltag := h.tag(l)
		merged := format.TagSize(ltag) + size + h.size(r) + 2*blockOverhead
		h.remove(b)
		h.remove(l)
		h.remove(r)
		h.writeFree(l, merged, format.IsLeftAllocated(ltag))
		h.pushFront(l)
		return l
	}
}
