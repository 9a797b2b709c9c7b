// Package container implements the archive format: a single container file
// holding a Huffman-compressed directory of member paths followed by one
// Huffman-compressed body per member, guarded by a CRC-32 trailer.
//
// This file owns the on-disk layout contracts shared by Encoder and
// Decoder: header field order, record shape, and the structural sentinels.
package container

import (
	"encoding/binary"
	"io"

	"github.com/kelbwah/huffmin-archiver/internal/bitbuffer"
	"github.com/kelbwah/huffmin-archiver/internal/huffman"
)

const (
	// ByteSize is the number of bits in a byte, used throughout the tree
	// and payload bit-packing.
	ByteSize = 8

	// WordBits is the bit-flush granularity during payload encoding.
	WordBits = bitbuffer.WordBits

	// BoolVecCapacity bounds how many words accumulate before a periodic
	// flush during payload encoding.
	BoolVecCapacity = bitbuffer.Capacity

	// EOT is the end-of-tree structural sentinel.
	EOT = huffman.EOT

	// EON is the end-of-name sentinel separating path-blob entries.
	EON byte = '<'

	// PathDelimiter separates top-level entries in a CLI path expression.
	PathDelimiter byte = '?'

	// FileCombiner joins a base directory to a relative path in the CLI
	// path expression grammar.
	FileCombiner byte = '*'

	// PathSeparator is the on-disk path separator for stored member paths.
	PathSeparator byte = '\\'

	// MaxTreeSize is the maximum serialized tree size, in bits.
	MaxTreeSize = huffman.MaxTreeSize

	// MaxFileSize is the 32-bit-safe upper bound on any input file or
	// container.
	MaxFileSize int64 = 1<<32 - 1

	// uint32Size is the width of every fixed-width field in the header and
	// record table.
	uint32Size = 4

	// bufSize is the chunk size of the buffered reads during compression
	// and the read-buffer refills during streaming decode.
	bufSize = 4096
)

// Record is one archived file's directory entry: its relative path, its
// final path segment, its uncompressed size, its CRC-32 checksum, and the
// half-open byte range [StartPos, EndPos) of its compressed region in the
// container.
type Record struct {
	Path     string
	Name     string
	Size     uint32
	Checksum uint32
	StartPos uint32
	EndPos   uint32
}

// writeUint32 writes v as 4 little-endian bytes to w.
func writeUint32(w io.Writer, v uint32) (int64, error) {
	var buf [uint32Size]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	n, err := w.Write(buf[:])
	return int64(n), err
}

// readUint32 reads 4 little-endian bytes from r.
func readUint32(r io.Reader) (uint32, error) {
	var buf [uint32Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// bytesToBits loads buf into a fresh BitBuffer, one bit per byte value's
// position i carrying weight 2^i (low-bit first).
func bytesToBits(buf []byte) *bitbuffer.BitBuffer {
	bb := bitbuffer.New()
	for _, by := range buf {
		for i := 0; i < ByteSize; i++ {
			bb.Append((by>>uint(i))&1 != 0)
		}
	}
	return bb
}

// bitsToBytes packs every complete byte currently in bb (bb.Size() must be
// a multiple of 8) into a []byte, low-bit first.
func bitsToBytes(bb *bitbuffer.BitBuffer) []byte {
	n := bb.Size() / ByteSize
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var v byte
		for j := 0; j < ByteSize; j++ {
			bit, _ := bb.At(i*ByteSize + j)
			if bit {
				v |= 1 << uint(j)
			}
		}
		out[i] = v
	}
	return out
}
