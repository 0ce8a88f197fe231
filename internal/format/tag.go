package format

// Pack combines a payload size and flag bits into one tag word.
// The size must already be a multiple of Alignment.
func Pack(size uint64, flags uint64) uint64 {
	return (size & TagSizeMask) | (flags & TagFlagMask)
}

// TagSize extracts the payload size from a tag word.
func TagSize(tag uint64) uint64 {
	return tag & TagSizeMask
}

// TagFlags extracts the flag bits from a tag word.
func TagFlags(tag uint64) uint64 {
	return tag & TagFlagMask
}

// IsAllocated reports whether the tag has the allocated bit set.
func IsAllocated(tag uint64) bool {
	return tag&TagAllocated != 0
}

// IsLeftAllocated reports whether the tag records an allocated left neighbor.
func IsLeftAllocated(tag uint64) bool {
	return tag&TagLeftAllocated != 0
}

// WithLeftAllocated returns tag with the left-allocated bit set or cleared.
func WithLeftAllocated(tag uint64, allocated bool) uint64 {
	if allocated {
		return tag | TagLeftAllocated
	}
	return tag &^ TagLeftAllocated
}
