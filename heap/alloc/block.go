package alloc

import "github.com/joshuapare/heapkit/internal/format"

// blockRef names a block by the offset of its header from the segment start.
// Offset 0 is the prologue, which is never free, so it doubles as the nil
// link in free lists.
type blockRef uint64

const nilBlock blockRef = 0

// blockOf returns the block whose payload starts at ref.
func blockOf(ref Ref) blockRef {
	return blockRef(ref - wordSize)
}

// payload returns the client reference for b.
func (b blockRef) payload() Ref {
	return Ref(b + wordSize)
}

// footerOff returns the offset of b's footer slot given its payload size.
func (b blockRef) footerOff(size uint64) uint64 {
	return uint64(b) + wordSize + size
}

// rightOf returns the header of the block immediately after b.
func (b blockRef) rightOf(size uint64) blockRef {
	return b + blockRef(blockOverhead+size)
}

func (h *Heap) tag(b blockRef) uint64 {
	return format.ReadU64(h.mem, uint64(b))
}

func (h *Heap) setTag(b blockRef, tag uint64) {
	format.PutU64(h.mem, uint64(b), tag)
}

func (h *Heap) size(b blockRef) uint64 {
	return format.TagSize(h.tag(b))
}

func (h *Heap) isAllocated(b blockRef) bool {
	return format.IsAllocated(h.tag(b))
}

func (h *Heap) right(b blockRef) blockRef {
	return b.rightOf(h.size(b))
}

// left returns the header of the block immediately before b. Only valid when
// b's left-allocated bit is clear: allocated blocks carry no footer.
func (h *Heap) left(b blockRef) blockRef {
	leftSize := format.TagSize(format.ReadU64(h.mem, uint64(b)-wordSize))
	return b - blockRef(blockOverhead+leftSize)
}

func leftFlag(leftAllocated bool) uint64 {
	if leftAllocated {
		return format.TagLeftAllocated
	}
	return 0
}

// writeFree formats b as a free block: identical header and footer, and the
// right neighbor told that its left side is now free.
func (h *Heap) writeFree(b blockRef, size uint64, leftAllocated bool) {
	tag := format.Pack(size, leftFlag(leftAllocated))
	h.setTag(b, tag)
	format.PutU64(h.mem, b.footerOff(size), tag)
	h.setLeftAllocated(b.rightOf(size), false)
}

// writeAllocated marks b allocated. The footer slot becomes client payload.
// The block to the right must already carry a valid header.
func (h *Heap) writeAllocated(b blockRef, size uint64, leftAllocated bool) {
	h.setTag(b, format.Pack(size, format.TagAllocated|leftFlag(leftAllocated)))
	h.setLeftAllocated(b.rightOf(size), true)
}

// setLeftAllocated updates b's left-allocated bit, keeping a free block's
// footer identical to its header.
func (h *Heap) setLeftAllocated(b blockRef, allocated bool) {
	tag := format.WithLeftAllocated(h.tag(b), allocated)
	h.setTag(b, tag)
	if !format.IsAllocated(tag) {
		format.PutU64(h.mem, b.footerOff(format.TagSize(tag)), tag)
	}
}

// freeNode is the Free arm of a block's state. While a block sits in a bucket
// the first two payload words hold its list links; once the block is
// allocated those bytes belong to the client and the view means nothing.
type freeNode struct {
	mem []byte
	b   blockRef
}

func (h *Heap) node(b blockRef) freeNode {
	return freeNode{mem: h.mem, b: b}
}

func (n freeNode) prev() blockRef {
	return blockRef(format.ReadU64(n.mem, uint64(n.b)+wordSize))
}

func (n freeNode) next() blockRef {
	return blockRef(format.ReadU64(n.mem, uint64(n.b)+2*wordSize))
}

func (n freeNode) setPrev(p blockRef) {
	format.PutU64(n.mem, uint64(n.b)+wordSize, uint64(p))
}

func (n freeNode) setNext(p blockRef) {
	format.PutU64(n.mem, uint64(n.b)+2*wordSize, uint64(p))
}
