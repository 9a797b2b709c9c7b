// Package crc32x provides the two CRC-32 entry points the container format
// needs: a whole-stream checksum (used for the trailer and the update
// no-op check) and a bounded-prefix checksum (used to verify everything
// before the trailer itself).
//
// The polynomial (0xEDB88320, reflected), initial value (0xFFFFFFFF) and
// final XOR (0xFFFFFFFF) are exactly those of the IEEE CRC-32 used by
// hash/crc32.IEEETable, so this package is a thin wrapper rather than a
// reimplementation of the table.
package crc32x

import (
	"hash"
	"hash/crc32"
	"io"
)

// Checksum computes the CRC-32 of everything r produces until EOF.
func Checksum(r io.Reader) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// ChecksumPrefix computes the CRC-32 of exactly n bytes read from r,
// starting at the reader's current position.
func ChecksumPrefix(r io.Reader, n int64) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, r, n); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// NewIEEE returns a streaming CRC-32 hash for incremental use, such as
// accumulating the checksum of a file's uncompressed bytes while they are
// simultaneously fed through the Huffman encoder.
func NewIEEE() hash.Hash32 {
	return crc32.NewIEEE()
}
