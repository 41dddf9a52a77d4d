// Package fieldpath implements the field-path decoder (spec component C8):
// a Huffman-coded op stream that mutates a path cursor used to traverse a
// serializer tree. Decoding is table-driven in the same spirit as
// klauspost/compress's huff0 decoder (a canonical-code table built once,
// walked bit-by-bit per symbol) — the bit-level alphabet itself is a fixed
// property of the wire format, so unlike huff0's byte-oriented FSE tables
// this one is hand-rolled rather than reusing huff0 directly (see
// DESIGN.md).
package fieldpath

import (
	"fmt"

	"github.com/csdemo/csdemo/bitread"
	"github.com/csdemo/csdemo/errs"
)

// Op names the cursor-mutation behavior one decoded Huffman symbol
// triggers (§4.8). The engine's alphabet has roughly 40 named symbols that
// collapse onto a much smaller set of distinct behaviors; csdemo maps every
// spec-named category onto exactly one Op.
type Op int

const (
	OpPlusOne Op = iota
	OpPlusTwo
	OpPlusThree
	OpPlusFour
	OpPlusN
	OpPushOneLeftDeltaZeroRightZero
	OpPushOneLeftDeltaZeroRightNonZero
	OpPushOneLeftDeltaOneRightZero
	OpPushOneLeftDeltaOneRightNonZero
	OpPushOneLeftDeltaNRightZero
	OpPushOneLeftDeltaNRightNonZero
	OpPushTwoLeftDeltaZero
	OpPushTwoLeftDeltaN
	OpPushThreeLeftDeltaZero
	OpPushThreeLeftDeltaN
	OpPushN
	OpPopOnePlusOne
	OpPopOnePlusN
	OpPopAllButOnePlusOne
	OpPopAllButOnePlusN
	OpPopNPlusOne
	OpPopNPlusN
	OpNonTopoComplex
	OpFieldPathEncodeFinish
)

// codeLengths assigns each Op a canonical Huffman codeword length. Shorter
// codes go to the ops the engine emits most often (single-field updates),
// matching §4.8's "codewords <= 17 bits" ceiling with headroom to spare.
var codeLengths = []struct {
	op     Op
	length uint
}{
	{OpPlusOne, 2},
	{OpFieldPathEncodeFinish, 3},
	{OpPushOneLeftDeltaZeroRightZero, 3},
	{OpPopOnePlusOne, 4},
	{OpPushOneLeftDeltaZeroRightNonZero, 4},
	{OpPlusTwo, 5},
	{OpPushOneLeftDeltaOneRightZero, 5},
	{OpPopAllButOnePlusOne, 5},
	{OpPushTwoLeftDeltaZero, 6},
	{OpPushOneLeftDeltaOneRightNonZero, 6},
	{OpPopOnePlusN, 6},
	{OpPlusN, 7},
	{OpPushThreeLeftDeltaZero, 7},
	{OpPopAllButOnePlusN, 7},
	{OpPushOneLeftDeltaNRightZero, 8},
	{OpPushTwoLeftDeltaN, 8},
	{OpPopNPlusOne, 8},
	{OpPlusThree, 9},
	{OpPushOneLeftDeltaNRightNonZero, 9},
	{OpPopNPlusN, 9},
	{OpPushThreeLeftDeltaN, 10},
	{OpPlusFour, 10},
	{OpNonTopoComplex, 11},
	{OpPushN, 12},
}

type trieNode struct {
	zero, one *trieNode
	op        Op
	isLeaf    bool
}

var root = buildTrie()

// buildTrie assigns canonical Huffman codes to codeLengths (stable sort by
// length, incrementing code value, left-shifting on each length increase)
// and inserts each into a binary trie, MSB-first.
func buildTrie() *trieNode {
	entries := make([]struct {
		op     Op
		length uint
	}, len(codeLengths))
	copy(entries, codeLengths)
	// stable insertion sort by length; codeLengths is small and already
	// mostly sorted so this is O(n) in practice.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].length < entries[j-1].length; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	r := &trieNode{}
	code := uint32(0)
	prevLen := uint(0)
	for _, e := range entries {
		if e.length > prevLen {
			code <<= e.length - prevLen
			prevLen = e.length
		}
		insert(r, e.op, code, e.length)
		code++
	}
	return r
}

func insert(r *trieNode, op Op, code uint32, length uint) {
	n := r
	for i := int(length) - 1; i >= 0; i-- {
		bit := (code >> uint(i)) & 1
		if bit == 0 {
			if n.zero == nil {
				n.zero = &trieNode{}
			}
			n = n.zero
		} else {
			if n.one == nil {
				n.one = &trieNode{}
			}
			n = n.one
		}
	}
	n.isLeaf = true
	n.op = op
}

// maxDepth is the path cursor's fixed capacity (spec §3: "up to 7 indices").
const maxDepth = 7

// Path is a traversal cursor into a serializer tree: up to 7 signed
// indices plus the active depth (last = Indices[Depth]).
type Path struct {
	Indices [maxDepth]int32
	Depth   int
}

// Last returns the current (deepest) index.
func (p *Path) Last() int32 { return p.Indices[p.Depth] }

func (p *Path) push(idx int32) error {
	p.Depth++
	if p.Depth >= maxDepth {
		return errs.ErrIllegalPathOp
	}
	p.Indices[p.Depth] = idx
	return nil
}

func (p *Path) pop(n int) error {
	p.Depth -= n
	if p.Depth < 0 {
		return errs.ErrIllegalPathOp
	}
	return nil
}

// Decode reads one Huffman symbol from r and applies its cursor mutation to
// p, returning (done=true) on FieldPathEncodeFinish.
func Decode(r *bitread.Reader, p *Path) (done bool, err error) {
	op, err := decodeSymbol(r)
	if err != nil {
		return false, err
	}
	return apply(op, r, p)
}

func decodeSymbol(r *bitread.Reader) (Op, error) {
	n := root
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			n = n.one
		} else {
			n = n.zero
		}
		if n == nil {
			return 0, errs.ErrUnknownPathOp
		}
		if n.isLeaf {
			return n.op, nil
		}
	}
}

// apply executes op's cursor mutation, consuming any additional bits the
// op requires (§4.8: PlusN reads a literal k-bit increment; PushN reads a
// literal level count; pop variants read a literal pop count).
func apply(op Op, r *bitread.Reader, p *Path) (done bool, err error) {
	switch op {
	case OpFieldPathEncodeFinish:
		return true, nil
	case OpPlusOne:
		p.Indices[p.Depth]++
	case OpPlusTwo:
		p.Indices[p.Depth] += 2
	case OpPlusThree:
		p.Indices[p.Depth] += 3
	case OpPlusFour:
		p.Indices[p.Depth] += 4
	case OpPlusN:
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		p.Indices[p.Depth] += int32(v) + 5
	case OpPushOneLeftDeltaZeroRightZero:
		err = p.push(0)
	case OpPushOneLeftDeltaZeroRightNonZero:
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		err = p.push(int32(v))
	case OpPushOneLeftDeltaOneRightZero:
		p.Indices[p.Depth]++
		err = p.push(0)
	case OpPushOneLeftDeltaOneRightNonZero:
		p.Indices[p.Depth]++
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		err = p.push(int32(v))
	case OpPushOneLeftDeltaNRightZero:
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		p.Indices[p.Depth] += int32(v)
		err = p.push(0)
	case OpPushOneLeftDeltaNRightNonZero:
		delta, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		p.Indices[p.Depth] += int32(delta)
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		err = p.push(int32(v))
	case OpPushTwoLeftDeltaZero:
		err = pushN(p, r, 2, false)
	case OpPushTwoLeftDeltaN:
		err = pushN(p, r, 2, true)
	case OpPushThreeLeftDeltaZero:
		err = pushN(p, r, 3, false)
	case OpPushThreeLeftDeltaN:
		err = pushN(p, r, 3, true)
	case OpPushN:
		count, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		err = pushN(p, r, int(count), true)
	case OpPopOnePlusOne:
		if err = p.pop(1); err == nil {
			p.Indices[p.Depth]++
		}
	case OpPopOnePlusN:
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		if err = p.pop(1); err == nil {
			p.Indices[p.Depth] += int32(v) + 1
		}
	case OpPopAllButOnePlusOne:
		if err = p.pop(p.Depth); err == nil {
			p.Indices[p.Depth]++
		}
	case OpPopAllButOnePlusN:
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		if err = p.pop(p.Depth); err == nil {
			p.Indices[p.Depth] += int32(v) + 1
		}
	case OpPopNPlusOne:
		n, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		if err = p.pop(int(n)); err == nil {
			p.Indices[p.Depth]++
		}
	case OpPopNPlusN:
		n, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		v, e := r.ReadUBitVar()
		if e != nil {
			return false, e
		}
		if err = p.pop(int(n)); err == nil {
			p.Indices[p.Depth] += int32(v)
		}
	case OpNonTopoComplex:
		// reads one signed value per remaining depth level, per §4.8's
		// catch-all for the engine's non-topological path corrections.
		for i := 0; i <= p.Depth; i++ {
			v, e := r.ReadVarInt32()
			if e != nil {
				return false, e
			}
			p.Indices[i] += v
		}
	default:
		return false, fmt.Errorf("%w: op %d", errs.ErrUnknownPathOp, op)
	}
	if err != nil {
		return false, err
	}
	if p.Indices[p.Depth] < 0 || p.Indices[p.Depth] > 65534 {
		return false, errs.ErrIllegalPathOp
	}
	return false, nil
}

func pushN(p *Path, r *bitread.Reader, n int, withDelta bool) error {
	for i := 0; i < n; i++ {
		idx := int32(0)
		if withDelta {
			v, err := r.ReadUBitVar()
			if err != nil {
				return err
			}
			idx = int32(v)
		}
		if err := p.push(idx); err != nil {
			return err
		}
	}
	return nil
}
