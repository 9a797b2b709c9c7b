package container

import (
	"bufio"
	"fmt"
	"io"

	"github.com/kelbwah/huffmin-archiver/internal/bitbuffer"
	"github.com/kelbwah/huffmin-archiver/internal/crc32x"
	"github.com/kelbwah/huffmin-archiver/internal/huffman"
)

// checksumAll computes the CRC-32 of everything r produces until EOF.
func checksumAll(r io.Reader) (uint32, error) {
	return crc32x.Checksum(r)
}

// checksumPrefix computes the CRC-32 of exactly n bytes read from r.
func checksumPrefix(r io.Reader, n int64) (uint32, error) {
	return crc32x.ChecksumPrefix(r, n)
}

// compressedRegion is the shape shared by the directory's path blob and
// every member body: treeBitSize (4B LE) | tree bits (ceil/8 bytes) | EOT
// sentinel (1 byte) | payload bytes, word-padded while streaming and
// byte-padded at the tail.

// compressAndWrite Huffman-compresses every byte src produces and writes
// the compressed region to dest, returning the CRC-32 of the uncompressed
// bytes and the number of bytes written.
func compressAndWrite(src io.ReadSeeker, dest io.Writer) (crc uint32, written int64, err error) {
	var freq [256]int
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	br := bufio.NewReaderSize(src, bufSize)
	buf := make([]byte, bufSize)
	for {
		n, rerr := br.Read(buf)
		for i := 0; i < n; i++ {
			freq[buf[i]]++
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, 0, rerr
		}
	}

	tree := huffman.BuildTree(freq)
	codes := huffman.ExtractCodes(tree)
	treeDepth := codes.Depth()

	treeBits, err := writeTreeAndSentinel(tree, dest)
	if err != nil {
		return 0, 0, err
	}
	written += treeBits

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	hash := crc32x.NewIEEE()
	payload := bitbuffer.New()
	threshold := BoolVecCapacity*WordBits - treeDepth

	br = bufio.NewReaderSize(src, bufSize)
	for {
		n, rerr := br.Read(buf)
		for i := 0; i < n; i++ {
			b := buf[i]
			code, ok := codes.Code(b)
			if !ok {
				return 0, 0, fmt.Errorf("container: no code for byte %d", b)
			}
			for _, bit := range code {
				payload.Append(bit)
			}
			hash.Write([]byte{b})
			if payload.Size() >= threshold {
				n, ferr := payload.FlushFullWords(dest)
				if ferr != nil {
					return 0, 0, ferr
				}
				written += int64(n)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, 0, rerr
		}
	}

	for payload.Size()%ByteSize != 0 {
		payload.Append(false)
	}
	tail := bitsToBytes(payload)
	if len(tail) > 0 {
		if _, err := dest.Write(tail); err != nil {
			return 0, 0, err
		}
		written += int64(len(tail))
	}

	return hash.Sum32(), written, nil
}

// writeTreeAndSentinel serializes tree as treeBitSize|tree bytes|EOT and
// returns the number of bytes written.
func writeTreeAndSentinel(tree *huffman.Node, dest io.Writer) (int64, error) {
	bb := bitbuffer.New()
	huffman.EncodeTree(tree, bb)
	treeBits := bb.Size()
	if treeBits > MaxTreeSize {
		return 0, ErrTooLarge
	}
	n, err := writeUint32(dest, uint32(treeBits))
	if err != nil {
		return 0, err
	}
	for bb.Size()%ByteSize != 0 {
		bb.Append(false)
	}
	treeBytes := bitsToBytes(bb)
	if _, err := dest.Write(treeBytes); err != nil {
		return 0, err
	}
	n += int64(len(treeBytes))
	if _, err := dest.Write([]byte{EOT}); err != nil {
		return 0, err
	}
	n++
	return n, nil
}

// readTreeAndSentinel reads a tree serialized by writeTreeAndSentinel from
// src, verifies the EOT sentinel, and returns the tree, its depth, and the
// number of bytes consumed.
func readTreeAndSentinel(src io.Reader) (tree *huffman.Node, depth int, consumed int64, err error) {
	treeBits, err := readUint32(src)
	if err != nil {
		return nil, 0, 0, err
	}
	if treeBits > MaxTreeSize {
		return nil, 0, 0, ErrTooLarge
	}
	storage := (int(treeBits) + ByteSize - 1) / ByteSize
	buf := make([]byte, storage)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, 0, 0, ErrCorrupted
	}
	bb := bytesToBits(buf)
	idx := 0
	tree, derr := huffman.DecodeTree(bb, &idx)
	if derr != nil || idx > int(treeBits) {
		return nil, 0, 0, ErrCorrupted
	}

	var sentinel [1]byte
	if _, err := io.ReadFull(src, sentinel[:]); err != nil {
		return nil, 0, 0, ErrCorrupted
	}
	if sentinel[0] != EOT {
		return nil, 0, 0, ErrCorrupted
	}

	depth = huffman.Depth(tree)
	if depth == 0 {
		depth = 1
	}
	return tree, depth, int64(uint32Size+storage) + 1, nil
}

// bitSource refills a BitBuffer from src on demand, preserving at least
// depth bits of read-ahead, as the decoder walks the Huffman tree one bit
// at a time. When the read cursor would come within depth bits of the
// buffered end, the consumed prefix is shifted out and another chunk is
// read in.
type bitSource struct {
	r     *bufio.Reader
	bb    *bitbuffer.BitBuffer
	idx   int
	depth int
}

func newBitSource(r io.Reader, depth int) *bitSource {
	return &bitSource{r: bufio.NewReaderSize(r, bufSize), bb: bitbuffer.New(), depth: depth}
}

func (bs *bitSource) ensure() error {
	if bs.bb.Size()-bs.idx >= bs.depth {
		return nil
	}
	if err := bs.bb.FreeBits(bs.idx); err != nil {
		return err
	}
	bs.idx = 0
	buf := make([]byte, bufSize)
	for bs.bb.Size() < bs.depth {
		n, err := bs.r.Read(buf)
		for i := 0; i < n; i++ {
			by := buf[i]
			for j := 0; j < ByteSize; j++ {
				bs.bb.Append((by>>uint(j))&1 != 0)
			}
		}
		if err == io.EOF {
			// Running dry here is not fatal: the symbol being decoded
			// may need fewer bits than the full read-ahead depth.
			// Exhaustion is detected by readByte's own bounds check.
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readByte walks tree from the current bit position until it reaches a
// leaf, returning the decoded symbol.
func (bs *bitSource) readByte(tree *huffman.Node) (byte, error) {
	if err := bs.ensure(); err != nil {
		return 0, err
	}
	node := tree
	for !node.IsLeaf() {
		bit, err := bs.bb.At(bs.idx)
		if err != nil {
			return 0, ErrCorrupted
		}
		bs.idx++
		if bit {
			node = node.Right
		} else {
			node = node.Left
		}
	}
	return node.Sym, nil
}

// decodeStream decodes exactly n bytes from src using tree, refilling as
// needed, and writes them to dest. Memory stays bounded by the tree plus
// the refill chunk regardless of member size.
func decodeStream(src io.Reader, tree *huffman.Node, depth int, n int, dest io.Writer) error {
	bs := newBitSource(src, depth)
	bw := bufio.NewWriterSize(dest, bufSize)
	for i := 0; i < n; i++ {
		b, err := bs.readByte(tree)
		if err != nil {
			return ErrCorrupted
		}
		if err := bw.WriteByte(b); err != nil {
			return err
		}
	}
	return bw.Flush()
}
