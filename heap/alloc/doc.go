// Package alloc implements a general-purpose dynamic memory allocator on top
// of a single reserved virtual address range.
//
// # Overview
//
// A Heap hands out variable-size blocks from one contiguous segment (see
// internal/segment). Free space is tracked with a segregated free-list
// design: free blocks are threaded onto doubly-linked lists, one per
// power-of-two size class, and every block carries a boundary tag so its
// neighbors can be found in O(1) when coalescing.
//
// # Heap Interface
//
//   - Init(): reset to an empty heap (reserves a fresh segment)
//   - Alloc(n): allocate n bytes, returning a Ref and the payload
//   - Free(ref): release a block (Nil is a no-op)
//   - Realloc(ref, n): resize, moving the payload when it no longer fits
//   - Validate(): check free-list structure, reporting every violation
//
// # Usage Example
//
//	h, err := alloc.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	ref, buf, err := h.Alloc(128)
//	if err != nil {
//	    return err
//	}
//	copy(buf, payload)
//
//	ref, buf, err = h.Realloc(ref, 4096)
//	...
//	h.Free(ref)
//
// # Block Layout
//
// Every block starts with an 8-byte header packing the payload size with two
// flag bits (allocated, left neighbor allocated):
//
//	header | payload (size bytes) | footer slot
//
// Free blocks repeat the header in the footer slot and keep their list links
// in the first two payload words. Allocated blocks hand the footer slot to
// the client, so an allocated block of size s has s+8 usable bytes. A block
// only reads its left neighbor's footer when its own header says the left
// neighbor is free.
//
// A zero-size allocated prologue sits at offset 0 and a zero-size allocated
// epilogue header occupies the last committed word, so neighbor lookups at
// either end never need special cases.
//
// # Size Classes
//
// Bucket i holds free blocks whose payload size s satisfies
// floor(log2(s/8)) == i; the last of the 29 buckets is a catch-all:
//
//	Bucket 1:   16 -   31 bytes
//	Bucket 2:   32 -   63 bytes
//	Bucket 3:   64 -  127 bytes
//	...
//	Bucket 28:  2 GiB and up
//
// Allocation is first-fit: scan the bucket matching the request, then each
// larger bucket, and take the first block that is big enough.
//
// # Growth
//
// When no free block fits, the heap commits more pages: enough for the
// request plus one tenth of the pages already committed. The new region
// becomes one free block that coalesces with any trailing free block.
//
// # References
//
// A Ref is the offset of a payload from the segment start. Since the segment
// start is page aligned, every Ref is 8-byte aligned exactly when the
// payload address is. Nil (0) never names a payload.
//
// # Thread Safety
//
// Heap instances are not thread-safe. Callers must confine a heap to one
// goroutine or synchronize externally.
package alloc
