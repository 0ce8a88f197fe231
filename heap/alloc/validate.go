package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// ValidationError describes one free-list inconsistency found by Check.
type ValidationError struct {
	Type    string // check category, e.g. "Bounds", "Footer"
	Message string
	Bucket  int    // bucket being walked
	Offset  uint64 // header offset of the offending node
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s in bucket %d at offset 0x%X: %s", e.Type, e.Bucket, e.Offset, e.Message)
}

// Check walks every bucket and returns all inconsistencies it finds. An
// empty result means the free lists are sound. The walk of a bucket stops
// at a node whose links cannot be trusted; other buckets are still checked.
//
// Checks per node:
//   - Bounds: header and footer inside the committed extent, 8-byte aligned
//   - Links: prev and next inside the extent, prev points back at the
//     previously visited node
//   - Header: non-zero size no larger than the segment, allocated bit clear
//   - Footer: footer equals header
//   - Bucket: the size belongs to the bucket holding the node
//   - Cycle: a list longer than the extent could hold
//
// Finally the summed payload of all nodes must equal FreeBytes.
func (h *Heap) Check() []*ValidationError {
	var errs []*ValidationError
	if h.seg == nil || len(h.mem) == 0 {
		return nil
	}

	end := uint64(len(h.mem))
	lo := uint64(firstBlock)
	hi := end - epilogueSize
	maxSize := uint64(h.seg.Max())
	maxNodes := end/(blockOverhead+minPayload) + 1

	inBounds := func(b blockRef) bool {
		return buf.InRange(uint64(b), blockOverhead+minPayload, lo, hi) && format.IsAligned(uint64(b))
	}

	var total uint64
	for i := 0; i < NumBuckets; i++ {
		fail := func(typ string, b blockRef, msg string, args ...any) {
			errs = append(errs, &ValidationError{
				Type:    typ,
				Message: fmt.Sprintf(msg, args...),
				Bucket:  i,
				Offset:  uint64(b),
			})
		}

		prev := nilBlock
		visited := uint64(0)
		for b := h.buckets[i]; b != nilBlock; {
			visited++
			if visited > maxNodes {
				fail("Cycle", b, "list longer than %d nodes", maxNodes)
				break
			}
			if !inBounds(b) {
				fail("Bounds", b, "node outside committed extent [0x%X, 0x%X)", lo, hi)
				break
			}

			tag := h.tag(b)
			size := format.TagSize(tag)
			n := h.node(b)
			next := n.next()

			if p := n.prev(); p != prev {
				fail("Links", b, "prev=0x%X, expected 0x%X", uint64(p), uint64(prev))
			}
			if next != nilBlock && !inBounds(next) {
				fail("Links", b, "next=0x%X outside committed extent", uint64(next))
				next = nilBlock
			}

			sizeOK := true
			switch {
			case size == 0:
				fail("Header", b, "zero size (tag=0x%X)", tag)
				sizeOK = false
			case size > maxSize:
				fail("Header", b, "size %d exceeds segment size %d", size, maxSize)
				sizeOK = false
			case !buf.InRange(uint64(b), blockOverhead+size, lo, hi):
				fail("Bounds", b, "block of size %d runs past 0x%X", size, hi)
				sizeOK = false
			}
			if format.IsAllocated(tag) {
				fail("Header", b, "allocated bit set on free node")
			}
			if sizeOK {
				if footer := format.ReadU64(h.mem, b.footerOff(size)); footer != tag {
					fail("Footer", b, "footer 0x%X != header 0x%X", footer, tag)
				}
				if want := bucketFor(size); want != i {
					fail("Bucket", b, "size %d belongs in bucket %d", size, want)
				}
				total += size
			}

			prev = b
			b = next
		}
	}

	if total != h.freeBytes {
		errs = append(errs, &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("free lists hold %d bytes, counter says %d", total, h.freeBytes),
			Bucket:  -1,
		})
	}
	return errs
}

// Validate runs Check, logs every violation at warn level and reports
// whether the heap passed.
func (h *Heap) Validate() bool {
	errs := h.Check()
	for _, e := range errs {
		h.log.Warn("heap validation failed",
			"type", e.Type,
			"bucket", e.Bucket,
			"offset", e.Offset,
			"msg", e.Message,
		)
	}
	return len(errs) == 0
}
