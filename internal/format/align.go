package format

// roundUp rounds n up to a multiple of mask+1, which must be a power of two.
func roundUp(n, mask uint64) uint64 {
	return (n + mask) &^ mask
}

// Align8 rounds a byte count up to the block alignment, so Align8(9) is 16.
func Align8(n uint64) uint64 { return roundUp(n, AlignmentMask) }

// AlignPage rounds a byte count up to whole pages: 1 and 4096 both give 4096.
func AlignPage(n uint64) uint64 { return roundUp(n, PageMask) }

// PagesFor is the page count behind AlignPage(n).
func PagesFor(n uint64) uint64 {
	return AlignPage(n) >> pageShift
}

// IsAligned reports whether an offset or size is a multiple of Alignment.
func IsAligned(n uint64) bool { return n&AlignmentMask == 0 }
