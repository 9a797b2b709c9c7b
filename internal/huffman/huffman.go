// Package huffman builds, serializes and deserializes the per-compression-unit
// Huffman trees used by the archive format: one for the path blob, one per
// archived file body.
package huffman

import (
	"container/heap"
	"errors"

	"github.com/kelbwah/huffmin-archiver/internal/bitbuffer"
)

// MaxTreeSize is the maximum size, in bits, of a serialized tree:
// (BYTE_SIZE + 1) * 256 + 255, the bound from the construction algorithm.
const MaxTreeSize = (8+1)*256 + 255

// EOT is the structural sentinel byte written immediately after a
// serialized tree's padding, marking its end.
const EOT = '/'

// ErrCorrupted is returned by DecodeTree when a serialized tree cannot be
// reconstructed because the bits run out mid-traversal. DecodeTree itself
// does not check MaxTreeSize.
var ErrCorrupted = errors.New("huffman: corrupted tree")

// Node is a Huffman tree node: either a leaf carrying one byte symbol, or an
// internal node with exactly two non-nil children.
type Node struct {
	Sym         byte
	Freq        int
	Left, Right *Node
}

// IsLeaf reports whether n is a leaf (no children).
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// pqItem is a forest entry: either a leaf pushed from the frequency table,
// or an internal node produced by merging two smaller entries. seq breaks
// ties between equal frequencies by insertion order, per construction.
type pqItem struct {
	node *Node
	seq  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].node.Freq != pq[j].node.Freq {
		return pq[i].node.Freq < pq[j].node.Freq
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// BuildTree constructs a Huffman tree from a 256-entry frequency table.
// Entries with freq == 0 are not symbols in the corpus.
//
// Two degenerate cases are handled explicitly so the result is always a
// decodable, traversable tree with every internal node carrying exactly two
// children:
//
//   - No symbol has non-zero frequency (an empty member body): a synthetic
//     leaf for symbol 0 is used so the tree still serializes and
//     deserializes, even though no payload bit will ever reference it.
//   - Exactly one symbol has non-zero frequency: the lone leaf is wrapped
//     under an internal node whose sibling is an unused placeholder leaf,
//     so every real code has length >= 1.
func BuildTree(freq [256]int) *Node {
	pq := &priorityQueue{}
	heap.Init(pq)
	seq := 0
	for b := 0; b < 256; b++ {
		if freq[b] > 0 {
			heap.Push(pq, &pqItem{node: &Node{Sym: byte(b), Freq: freq[b]}, seq: seq})
			seq++
		}
	}

	switch pq.Len() {
	case 0:
		leaf := &Node{Sym: 0, Freq: 0}
		return wrapSingleLeaf(leaf)
	case 1:
		leaf := (*pq)[0].node
		return wrapSingleLeaf(leaf)
	}

	for pq.Len() > 1 {
		first := heap.Pop(pq).(*pqItem)
		second := heap.Pop(pq).(*pqItem)
		merged := &Node{
			Freq:  first.node.Freq + second.node.Freq,
			Left:  first.node,
			Right: second.node,
		}
		heap.Push(pq, &pqItem{node: merged, seq: seq})
		seq++
	}
	return heap.Pop(pq).(*pqItem).node
}

// wrapSingleLeaf wraps a lone leaf under an internal node with an unused
// placeholder sibling, so the leaf's code has length >= 1.
func wrapSingleLeaf(leaf *Node) *Node {
	placeholder := leaf.Sym + 1 // wraps mod 256; distinct from leaf.Sym
	sibling := &Node{Sym: placeholder, Freq: 0}
	return &Node{Freq: leaf.Freq, Left: leaf, Right: sibling}
}

// Codes maps byte values to their bit sequence, present only for symbols
// with non-zero frequency.
type Codes struct {
	table [256][]bool
	depth int
}

// Code returns the bit sequence for sym, and whether one exists.
func (c *Codes) Code(sym byte) ([]bool, bool) {
	code := c.table[sym]
	return code, code != nil
}

// Depth is the maximum code length in bits, i.e. the tree depth, used as a
// read-ahead bound during streaming decode.
func (c *Codes) Depth() int {
	if c.depth == 0 {
		return 1
	}
	return c.depth
}

// ExtractCodes walks root depth-first, recording the path of each leaf with
// non-zero frequency as its code and tracking the maximum leaf depth seen.
func ExtractCodes(root *Node) *Codes {
	c := &Codes{}
	var walk func(n *Node, prefix []bool)
	walk = func(n *Node, prefix []bool) {
		if n == nil {
			return
		}
		if n.IsLeaf() {
			if n.Freq > 0 {
				code := make([]bool, len(prefix))
				copy(code, prefix)
				c.table[n.Sym] = code
			}
			if len(prefix) > c.depth {
				c.depth = len(prefix)
			}
			return
		}
		walk(n.Left, append(prefix, false))
		walk(n.Right, append(prefix, true))
	}
	walk(root, nil)
	return c
}

// Depth returns the longest root-to-leaf path in t, in edges.
func Depth(t *Node) int {
	if t == nil {
		return 0
	}
	if t.IsLeaf() {
		return 0
	}
	l, r := Depth(t.Left), Depth(t.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// EncodeTree serializes t into bb as a pre-order bitstream: an internal
// node emits bit 1 then recurses left and right; a leaf emits bit 0
// followed by its 8-bit symbol, low-bit first.
func EncodeTree(t *Node, bb *bitbuffer.BitBuffer) {
	if t == nil {
		return
	}
	if t.IsLeaf() {
		bb.Append(false)
		for i := 0; i < 8; i++ {
			bb.Append((t.Sym>>uint(i))&1 != 0)
		}
		return
	}
	bb.Append(true)
	EncodeTree(t.Left, bb)
	EncodeTree(t.Right, bb)
}

// DecodeTree reconstructs a tree from the pre-order bitstream in bb,
// starting at *idx, and advances *idx past the bits consumed.
func DecodeTree(bb *bitbuffer.BitBuffer, idx *int) (*Node, error) {
	bit, err := bb.At(*idx)
	if err != nil {
		return nil, ErrCorrupted
	}
	*idx++
	if bit {
		left, err := DecodeTree(bb, idx)
		if err != nil {
			return nil, err
		}
		right, err := DecodeTree(bb, idx)
		if err != nil {
			return nil, err
		}
		return &Node{Left: left, Right: right}, nil
	}

	var sym byte
	for i := 0; i < 8; i++ {
		b, err := bb.At(*idx)
		if err != nil {
			return nil, ErrCorrupted
		}
		*idx++
		if b {
			sym |= 1 << uint(i)
		}
	}
	return &Node{Sym: sym}, nil
}
