// Package logarray implements a packed fixed-width integer array: n
// values of w bits each, tightly bit-packed with no per-value padding,
// preceded by a small width header (§6, "Log-array: a packed-bit width
// header followed by n values of w bits each"). It backs dictionary
// block offsets, adjacency list right-values, and the bit widths used
// inside wavelet trees.
//
// Bits are packed MSB-first within the logical bitstream, spanning
// 64-bit words; this matches the teacher's big-endian-within-word
// bit-packing convention used elsewhere for varints.
package logarray

import (
	"encoding/binary"
	"sort"

	"github.com/regulumdb/ferricstore/pkg/storeerr"
)

// maxWidth is the largest bit width this package will pack a value
// into; values must fit in a uint64.
const maxWidth = 64

// headerLen is the fixed size, in bytes, of a log-array's header: a
// big-endian uint32 entry count followed by one byte giving the
// per-value bit width.
const headerLen = 5

// Array is an immutable packed array of n values, each w bits wide.
type Array struct {
	width int
	n     int
	words []uint64
}

// Builder accumulates values in append order and produces an
// immutable Array once the maximum value (and hence the width) is
// known.
type Builder struct {
	vals []uint64
}

// NewBuilder returns a Builder, optionally pre-sizing for n values.
func NewBuilder(n int) *Builder {
	return &Builder{vals: make([]uint64, 0, n)}
}

// Append appends v to the array under construction.
func (b *Builder) Append(v uint64) {
	b.vals = append(b.vals, v)
}

// Len reports the number of values appended so far.
func (b *Builder) Len() int { return len(b.vals) }

// Build computes the minimum width needed to hold every appended
// value and packs them into an Array.
func (b *Builder) Build() *Array {
	var max uint64
	for _, v := range b.vals {
		if v > max {
			max = v
		}
	}
	return packWithWidth(b.vals, WidthFor(max))
}

// WidthFor returns the number of bits needed to represent max, with a
// floor of 1 so a zero-length or all-zero array still has a defined
// (if wasted) bit width.
func WidthFor(max uint64) int {
	w := 1
	for (uint64(1)<<uint(w))-1 < max {
		w++
	}
	return w
}

func packWithWidth(vals []uint64, width int) *Array {
	a := &Array{width: width, n: len(vals)}
	totalBits := width * len(vals)
	a.words = make([]uint64, (totalBits+63)/64)
	bitPos := 0
	for _, v := range vals {
		putBits(a.words, bitPos, width, v)
		bitPos += width
	}
	return a
}

// putBits writes the low `width` bits of v into the packed bitstream
// at bit offset pos, MSB-first within the stream.
func putBits(words []uint64, pos, width int, v uint64) {
	for i := width - 1; i >= 0; i-- {
		bit := (v >> uint(i)) & 1
		if bit != 0 {
			word := pos / 64
			off := uint(63 - pos%64)
			words[word] |= uint64(1) << off
		}
		pos++
	}
}

func getBits(words []uint64, pos, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		word := pos / 64
		off := uint(63 - pos%64)
		bit := (words[word] >> off) & 1
		v = v<<1 | bit
		pos++
	}
	return v
}

// Len returns the number of values in the array.
func (a *Array) Len() int { return a.n }

// Width returns the per-value bit width.
func (a *Array) Width() int { return a.width }

// Get returns the value at index i.
func (a *Array) Get(i int) uint64 {
	return getBits(a.words, i*a.width, a.width)
}

// Entry index for an element not present in a sparse log-array.
const Missing = 0

// Encode serializes the array to its on-disk byte representation: a
// header (entry count, bit width) followed by the packed bitstream.
func (a *Array) Encode() []byte {
	buf := make([]byte, headerLen+len(a.words)*8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(a.n))
	buf[4] = byte(a.width)
	for i, w := range a.words {
		binary.BigEndian.PutUint64(buf[headerLen+i*8:headerLen+i*8+8], w)
	}
	return buf
}

// Decode parses a log-array from its on-disk byte representation, as
// produced by Encode.
func Decode(buf []byte) (*Array, error) {
	if len(buf) < headerLen {
		return nil, storeerr.ErrUnexpectedEOF
	}
	n := int(binary.BigEndian.Uint32(buf[0:4]))
	width := int(buf[4])
	if width <= 0 || width > maxWidth {
		return nil, storeerr.ErrInvalidCoding
	}
	totalBits := n * width
	nWords := (totalBits + 63) / 64
	need := headerLen + nWords*8
	if len(buf) < need {
		return nil, storeerr.ErrUnexpectedEOF
	}
	words := make([]uint64, nWords)
	for i := 0; i < nWords; i++ {
		words[i] = binary.BigEndian.Uint64(buf[headerLen+i*8 : headerLen+i*8+8])
	}
	return &Array{width: width, n: n, words: words}, nil
}

// NearestIndexForMonotone performs a binary search over a monotone
// (non-decreasing) array for the greatest index i such that
// Get(i) <= target. It returns -1 if every entry exceeds target. This
// backs the O(log n) subject and object group lookups of pkg/triples.
func (a *Array) NearestIndexForMonotone(target uint64) int {
	i := sort.Search(a.n, func(i int) bool {
		return a.Get(i) > target
	})
	return i - 1
}
