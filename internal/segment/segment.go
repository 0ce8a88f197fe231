// Package segment manages the single contiguous virtual address range that
// backs a heap. The whole range is reserved up front without physical
// backing and then committed page by page as the allocator asks for more.
//
// Separating reservation from commitment gives the allocator a contiguous
// arena that can grow in place: block offsets never move, so boundary-tag
// arithmetic across an extension boundary stays valid.
package segment

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

const (
	// PageSize is the commit granularity.
	PageSize = format.PageSize

	// DefaultMaxSize is the default reservation: 8 GiB.
	DefaultMaxSize = 1 << 33
)

var (
	// ErrReserve indicates that the address range could not be reserved.
	ErrReserve = errors.New("segment: reserve failed")

	// ErrCommit indicates that the OS refused to commit additional pages.
	ErrCommit = errors.New("segment: commit failed")

	// ErrExhausted indicates that extending would exceed the reserved bound.
	ErrExhausted = errors.New("segment: reserved range exhausted")

	// ErrNotReserved indicates an operation on a segment with no reservation.
	ErrNotReserved = errors.New("segment: not reserved")

	// ErrRelease indicates that the OS refused to unmap the range. The
	// segment keeps its reservation so Release can be retried.
	ErrRelease = errors.New("segment: release failed")
)

// osRelease is swapped out by tests to simulate an unmap failure.
var osRelease = release

// Segment is one reserved address range with a committed prefix.
// It is not safe for concurrent use.
type Segment struct {
	mem  []byte // full reservation; only mem[:size] is accessible
	size int    // committed bytes, always a multiple of PageSize
	max  int    // reserved bytes
}

// Reserve reserves maxSize bytes (rounded up to whole pages) and returns a
// segment with nothing committed yet.
func Reserve(maxSize int) (*Segment, error) {
	s := &Segment{}
	if err := s.Reserve(maxSize); err != nil {
		return nil, err
	}
	return s, nil
}

// Reserve discards any previous reservation and reserves a fresh range of
// maxSize bytes. Every slice previously obtained from Bytes becomes invalid.
func (s *Segment) Reserve(maxSize int) error {
	if err := s.Release(); err != nil {
		return err
	}
	if maxSize <= 0 {
		return fmt.Errorf("%w: invalid size %d", ErrReserve, maxSize)
	}
	rounded := alignUp(maxSize, granularity())
	if rounded < maxSize {
		return fmt.Errorf("%w: size %d overflows", ErrReserve, maxSize)
	}

	mem, err := reserve(rounded)
	if err != nil {
		return fmt.Errorf("%w: %d bytes: %w", ErrReserve, rounded, err)
	}
	s.mem = mem
	s.size = 0
	s.max = rounded
	return nil
}

// Extend commits pages additional pages directly after the committed extent
// and returns the offset at which the new pages start (the previous end).
// Extend(0) is a no-op returning the current end.
func (s *Segment) Extend(pages int) (int, error) {
	if s.mem == nil {
		return 0, ErrNotReserved
	}
	prevEnd := s.size
	if pages == 0 {
		return prevEnd, nil
	}
	if pages < 0 {
		return 0, fmt.Errorf("%w: negative page count %d", ErrCommit, pages)
	}

	inc, ok := buf.Span(pages, PageSize)
	if !ok {
		return 0, fmt.Errorf("%w: %d pages", ErrExhausted, pages)
	}
	newEnd, ok := buf.Fits(prevEnd, inc, s.max)
	if !ok {
		return 0, fmt.Errorf("%w: committed=%d requested=%d max=%d",
			ErrExhausted, prevEnd, inc, s.max)
	}

	// The OS may protect in units larger than PageSize (16K on some arm64
	// systems); widening the range only exposes pages that are committed
	// early, never pages outside the reservation.
	g := granularity()
	lo := prevEnd &^ (g - 1)
	hi := min(alignUp(newEnd, g), len(s.mem))
	if err := commit(s.mem[lo:hi]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	s.size = newEnd
	return prevEnd, nil
}

// granularity returns the protection unit: the larger of PageSize and the
// OS page size. Both are powers of two.
func granularity() int {
	return max(PageSize, osPageSize())
}

func alignUp(n, to int) int {
	return (n + to - 1) &^ (to - 1)
}

// Start returns the base address of the reservation, or 0 if none exists.
// The address is page aligned.
func (s *Segment) Start() uintptr {
	if s.mem == nil {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(s.mem)))
}

// Size returns the number of committed bytes.
func (s *Segment) Size() int {
	return s.size
}

// Max returns the number of reserved bytes (the upper bound for Size).
func (s *Segment) Max() int {
	return s.max
}

// Pages returns the number of committed pages.
func (s *Segment) Pages() int {
	return s.size / PageSize
}

// Bytes returns the committed prefix of the segment. The slice stays valid
// across later Extend calls (the range never moves) but not across Reserve
// or Release.
func (s *Segment) Bytes() []byte {
	if s.mem == nil {
		return nil
	}
	return s.mem[:s.size:s.size]
}

// Release returns the whole range to the OS. Releasing an unreserved
// segment is a no-op.
func (s *Segment) Release() error {
	if s.mem == nil {
		return nil
	}
	if err := osRelease(s.mem); err != nil {
		return fmt.Errorf("%w: %w", ErrRelease, err)
	}
	s.mem = nil
	s.size = 0
	s.max = 0
	return nil
}
