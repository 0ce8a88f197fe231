package format

import "encoding/binary"

// Tag and link words are little-endian on every host so that a heap dump
// reads the same everywhere. off must leave a full word inside b.

// PutU64 stores v as the word at off.
func PutU64(b []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// ReadU64 loads the word at off.
func ReadU64(b []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}
