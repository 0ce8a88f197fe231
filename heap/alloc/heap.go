package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/segment"
)

// Heap is a segregated free-list allocator over one reserved segment.
// Every allocator operation goes through a Heap value; independent heaps
// share nothing.
type Heap struct {
	seg *segment.Segment

	// mem is the committed prefix of the segment, refreshed after growth.
	mem []byte

	// buckets holds the head of each size-class list (nilBlock when empty).
	buckets [NumBuckets]blockRef

	// freeBytes is the total payload size of all blocks in the buckets.
	freeBytes uint64

	opts  Options
	log   *slog.Logger
	stats Stats
}

// New creates and initializes a heap.
//
// Parameters:
//   - opts: heap configuration (use nil for DefaultOptions)
func New(opts *Options) (*Heap, error) {
	o := opts.withDefaults()
	h := &Heap{
		seg:  &segment.Segment{},
		opts: o,
		log:  o.Logger,
	}
	if err := h.Init(); err != nil {
		return nil, err
	}
	return h, nil
}

// Init resets the heap to an empty state: the previous segment is released,
// a fresh range is reserved and all bookkeeping is cleared. References from
// before the reset become invalid. Pages are committed on the first Alloc.
func (h *Heap) Init() error {
	if h.seg == nil {
		h.seg = &segment.Segment{}
	}
	// Reserve unmaps the old range before it can fail, so nothing may keep
	// pointing into it.
	h.mem = nil
	h.buckets = [NumBuckets]blockRef{}
	h.freeBytes = 0
	h.stats = Stats{}
	return h.seg.Reserve(h.opts.MaxSegmentSize)
}

// Close releases the segment. The heap is unusable until Init is called.
func (h *Heap) Close() error {
	if h.seg == nil {
		return nil
	}
	// On failure the heap stays open so Close can be retried.
	if err := h.seg.Release(); err != nil {
		return err
	}
	h.seg = nil
	h.mem = nil
	h.buckets = [NumBuckets]blockRef{}
	h.freeBytes = 0
	return nil
}

// Alloc allocates a block of at least n bytes. Returns the block reference
// and its payload, sliced to length n with the block's full usable capacity.
//
// Requests of zero, negative or more than MaxRequest bytes fail with
// ErrInvalidSize. ErrNoSpace means the segment could not supply the block.
func (h *Heap) Alloc(n int) (Ref, []byte, error) {
	h.stats.AllocCalls++
	if n <= 0 || n > MaxRequest {
		return Nil, nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	ref, err := h.alloc(n)
	if err != nil {
		return Nil, nil, err
	}
	return ref, h.payload(ref, n), nil
}

// alloc finds or makes room for n bytes and marks the block allocated.
func (h *Heap) alloc(n int) (Ref, error) {
	if h.seg == nil {
		return Nil, ErrClosed
	}
	need := adjustSize(n)

	b, ok := h.findFit(need)
	if ok {
		h.stats.AllocFastPath++
	} else {
		if err := h.grow(need); err != nil {
			h.log.Debug("alloc: grow failed", "need", need, "err", err)
			return Nil, err
		}
		b, ok = h.findFit(need)
		if !ok {
			h.log.Debug("alloc: no fit after grow", "need", need)
			return Nil, fmt.Errorf("%w: need=%d after grow", ErrNoSpace, need)
		}
		h.stats.AllocSlowPath++
	}

	h.place(b, need)
	h.stats.BytesAllocated += int64(h.size(b) + wordSize)
	return b.payload(), nil
}

// adjustSize converts a request into a block payload size: rounded to the
// alignment, minus the reclaimed footer slot, and never smaller than the
// two free-list links.
func adjustSize(n int) uint64 {
	size := format.Align8(uint64(n))
	if size < minPayload+wordSize {
		return minPayload
	}
	return size - wordSize
}

// place marks free block b allocated for need bytes, splitting off the tail
// as a new free block when it is large enough to stand alone.
func (h *Heap) place(b blockRef, need uint64) {
	tag := h.tag(b)
	csize := format.TagSize(tag)
	leftAllocated := format.IsLeftAllocated(tag)
	h.remove(b)

	if csize-need < minSplit {
		h.writeAllocated(b, csize, leftAllocated)
		return
	}

	h.stats.SplitCount++
	// The tail has to be formatted before b's header shrinks: until then the
	// offset right after the shrunk block holds no valid tag.
	rest := b.rightOf(need)
	h.writeFree(rest, csize-need-blockOverhead, true)
	h.setTag(b, format.Pack(need, format.TagAllocated|leftFlag(leftAllocated)))
	h.insert(rest)
}

// Free releases the block at ref. Free(Nil) is a no-op. Passing a reference
// not obtained from this heap, or freeing twice, corrupts the heap.
func (h *Heap) Free(ref Ref) {
	if ref == Nil || h.seg == nil || len(h.mem) == 0 {
		return
	}
	h.stats.FreeCalls++
	b := blockOf(ref)
	tag := h.tag(b)
	size := format.TagSize(tag)
	h.stats.BytesFreed += int64(size + wordSize)

	h.writeFree(b, size, format.IsLeftAllocated(tag))
	h.insert(b)
}

// Realloc resizes the block at ref to hold n bytes.
//
//   - Realloc(Nil, n) behaves like Alloc(n).
//   - Realloc(ref, 0) frees the block and returns Nil with no error.
//   - If the block's usable capacity already covers n, ref is returned as is.
//   - Otherwise a new block with headroom (ReallocFactor) is allocated, the
//     old usable bytes are copied over and the old block is freed.
//
// On failure the original block is left untouched.
func (h *Heap) Realloc(ref Ref, n int) (Ref, []byte, error) {
	h.stats.ReallocCalls++
	if ref == Nil {
		return h.Alloc(n)
	}
	if h.seg == nil {
		return Nil, nil, ErrClosed
	}
	if n == 0 {
		h.Free(ref)
		return Nil, nil, nil
	}
	if n < 0 || n > MaxRequest {
		return Nil, nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	old := h.UsableSize(ref)
	if old >= n {
		h.stats.ReallocInPlace++
		return ref, h.payload(ref, n), nil
	}

	target := n
	if f := h.opts.ReallocFactor; f > 1 {
		grown := float64(n) * f
		if grown > MaxRequest {
			grown = MaxRequest
		}
		target = int(grown)
	}

	newRef, err := h.alloc(target)
	if err != nil && target != n {
		newRef, err = h.alloc(n)
	}
	if err != nil {
		return Nil, nil, err
	}

	// h.mem may have been refreshed by growth; slice after alloc.
	copy(h.mem[newRef:uint64(newRef)+uint64(old)], h.mem[ref:uint64(ref)+uint64(old)])
	h.Free(ref)
	return newRef, h.payload(newRef, n), nil
}

// Bytes returns the full usable payload of the live block at ref.
func (h *Heap) Bytes(ref Ref) []byte {
	end := uint64(ref) + uint64(h.UsableSize(ref))
	return h.mem[ref:end:end]
}

// UsableSize returns how many payload bytes the live block at ref can hold.
func (h *Heap) UsableSize(ref Ref) int {
	return int(h.size(blockOf(ref)) + wordSize)
}

func (h *Heap) payload(ref Ref, n int) []byte {
	end := uint64(ref) + uint64(h.UsableSize(ref))
	return h.mem[ref : uint64(ref)+uint64(n) : end]
}

// grow commits enough pages for a block of need payload bytes, formats them
// as one free block and inserts it, merging with a trailing free block left
// by the previous extension.
func (h *Heap) grow(need uint64) error {
	first := h.seg.Size() == 0
	if !first && len(h.mem) == 0 {
		// A failed Init left the previous range mapped but forgotten.
		return fmt.Errorf("%w: segment was not reset", ErrNoSpace)
	}

	// A later extension starts its block on the old epilogue, so only the
	// block's own header and footer slot are overhead. The first one also
	// pays for both sentinels.
	overhead := uint64(blockOverhead)
	if first {
		overhead += prologueSize + epilogueSize
	}
	minPages := int(format.PagesFor(need + overhead))

	pages := minPages
	if d := h.opts.GrowthDivisor; d > 0 {
		pages += h.seg.Pages() / d
	}
	if avail := (h.seg.Max() - h.seg.Size()) / PageSize; pages > avail {
		pages = minPages
	}

	off, err := h.seg.Extend(pages)
	if err != nil {
		return fmt.Errorf("%w: need=%d pages=%d: %w", ErrNoSpace, need, pages, err)
	}
	h.mem = h.seg.Bytes()
	h.stats.GrowCalls++
	h.stats.GrowPages += pages

	epilogue := blockRef(uint64(len(h.mem)) - wordSize)
	var b blockRef
	var leftAllocated bool
	if first {
		prologue := format.Pack(0, format.TagAllocated|format.TagLeftAllocated)
		format.PutU64(h.mem, 0, prologue)
		format.PutU64(h.mem, wordSize, prologue)
		b = firstBlock
		leftAllocated = true
	} else {
		b = blockRef(uint64(off) - wordSize)
		leftAllocated = format.IsLeftAllocated(h.tag(b))
	}

	h.setTag(epilogue, format.Pack(0, format.TagAllocated))
	h.writeFree(b, uint64(epilogue-b)-blockOverhead, leftAllocated)
	h.insert(b)

	h.log.Debug("grow",
		"need", need,
		"pages", pages,
		"committed", h.seg.Size(),
		"free", h.freeBytes,
	)
	return nil
}
