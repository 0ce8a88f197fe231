// Package buf contains overflow-safe arithmetic and range checks used when
// computing segment extents and validating block offsets.
package buf

import (
	"math"
	"math/bits"
)

// Span returns count*unit, or ok = false when either is negative or the
// product does not fit an int.
func Span(count, unit int) (int, bool) {
	if count < 0 || unit < 0 {
		return 0, false
	}
	if unit != 0 && count > math.MaxInt/unit {
		return 0, false
	}
	return count * unit, true
}

// Fits returns end+inc when the result stays within [0, limit].
func Fits(end, inc, limit int) (int, bool) {
	if end < 0 || inc < 0 || end > limit || inc > limit-end {
		return 0, false
	}
	return end + inc, true
}

// AddU64 adds a and b, returning ok = false on wrap-around.
func AddU64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// InRange reports whether [off, off+n) lies within [lo, hi).
// A corrupted offset near the top of the address space must not wrap into range.
func InRange(off, n, lo, hi uint64) bool {
	if off < lo {
		return false
	}
	end, ok := AddU64(off, n)
	return ok && end <= hi
}
