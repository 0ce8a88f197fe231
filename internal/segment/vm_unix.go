//go:build unix

package segment

import (
	"errors"

	"golang.org/x/sys/unix"
)

// reserve maps size bytes of inaccessible anonymous memory. PROT_NONE
// mappings carry no commit charge, so large reservations are cheap.
func reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// commit makes the pages covered by mem readable and writable.
func commit(mem []byte) error {
	return unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE)
}

func release(mem []byte) error {
	err := unix.Munmap(mem)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

func osPageSize() int {
	return unix.Getpagesize()
}
