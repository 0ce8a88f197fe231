// Package format houses the low-level word encoding shared by the segment
// manager and the allocator: boundary-tag packing, alignment and
// little-endian word access. It is kept free of allocator state so the
// helpers stay trivially testable.
package format

const (
	// WordSize is the size of one boundary tag or free-list link.
	WordSize = 8

	// Alignment is the alignment of every block header and payload.
	Alignment = 8

	// AlignmentMask is used for fast alignment calculations: (n + mask) & ^mask.
	AlignmentMask = Alignment - 1

	// PageSize is the commit granularity of the heap segment.
	PageSize = 4096

	// PageMask is used for rounding sizes up to whole pages.
	PageMask = PageSize - 1

	pageShift = 12
)

const (
	// TagAllocated marks a block whose payload belongs to the client.
	TagAllocated uint64 = 1 << 0

	// TagLeftAllocated records that the block immediately to the left is
	// allocated. A block only reads its left neighbor's footer when this
	// bit is clear, which is what allows allocated blocks to drop footers.
	TagLeftAllocated uint64 = 1 << 1

	// TagFlagMask covers every flag bit. Sizes are multiples of Alignment so
	// the low three bits never carry size information.
	TagFlagMask uint64 = AlignmentMask

	// TagSizeMask extracts the payload size from a tag word.
	TagSizeMask = ^TagFlagMask
)
