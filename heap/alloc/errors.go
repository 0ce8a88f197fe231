package alloc

import "errors"

var (
	// ErrInvalidSize indicates a zero, negative or oversized request.
	ErrInvalidSize = errors.New("alloc: invalid request size")

	// ErrNoSpace indicates that no free block was large enough and the
	// segment could not supply one.
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("alloc: heap is closed")
)
