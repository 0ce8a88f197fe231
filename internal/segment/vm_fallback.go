//go:build !unix && !windows

package segment

// reserve allocates the whole range from the Go heap when the platform has
// no reserve/commit primitives. Pages are still handed out incrementally,
// so the allocator sees the same contract.
func reserve(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func commit(_ []byte) error {
	return nil
}

func release(_ []byte) error {
	return nil
}

func osPageSize() int {
	return PageSize
}
