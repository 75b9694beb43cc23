// Package bitindex implements the succinct bit vector with rank/select
// support that backs adjacency lists (§4.3), wavelet trees (§4.2, §4.4),
// and id-maps. It is a two-level structure: one cumulative-rank entry
// per 64-bit word ("blocks") and one cumulative-rank entry per group of
// wordsPerSuperblock words ("sblocks"), so rank is O(1) and select is a
// binary search over sblocks followed by a linear scan of the words in
// the located block.
//
// No third-party succinct-data-structure library in the retrieved
// corpus exposes this exact blocks/sblocks on-disk layout (see
// DESIGN.md); this package is hand-built on math/bits.
package bitindex

import (
	"math/bits"
)

const wordsPerSuperblock = 8

// Index is an immutable bit vector with rank/select support.
type Index struct {
	bits    []uint64 // packed bits, LSB-first within each word
	n       int      // number of meaningful bits
	blocks  []uint32 // cumulative popcount at the start of each word
	sblocks []uint64 // cumulative popcount at the start of each superblock
}

// Len returns the number of bits in the index.
func (x *Index) Len() int { return x.n }

// Bit reports the bit at position i (0-based).
func (x *Index) Bit(i int) bool {
	return x.bits[i/64]&(uint64(1)<<uint(i%64)) != 0
}

// Rank1 returns the number of set bits in [0, i). Rank1(0) == 0.
// blocks[word] holds the cumulative rank since the start of word's
// superblock, so this is O(1): no scan over intervening words.
func (x *Index) Rank1(i int) int {
	if i <= 0 {
		return 0
	}
	if i > x.n {
		i = x.n
	}
	word := i / 64
	bitOff := uint(i % 64)

	// i == n and n a multiple of 64 puts word one past the last
	// populated block (there is no partial word left to count bits
	// within); the trailing sblocks entry already holds the total
	// popcount for exactly this case.
	if word >= len(x.blocks) {
		return int(x.sblocks[len(x.sblocks)-1])
	}

	sb := word / wordsPerSuperblock
	rank := int(x.sblocks[sb]) + int(x.blocks[word])
	if bitOff > 0 {
		mask := uint64(1)<<bitOff - 1
		rank += bits.OnesCount64(x.bits[word] & mask)
	}
	return rank
}

// Select1 returns the position of the (k+1)-th set bit (0-indexed k),
// or -1 if there is no such bit.
func (x *Index) Select1(k int) int {
	if k < 0 {
		return -1
	}
	target := k + 1 // 1-indexed count of ones we're looking for

	// Binary search the largest superblock whose cumulative rank is
	// strictly less than target.
	lo, hi := 0, len(x.sblocks)-1
	sb := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if int(x.sblocks[mid]) < target {
			sb = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	rank := int(x.sblocks[sb])
	word := sb * wordsPerSuperblock
	for word < len(x.bits) {
		wc := bits.OnesCount64(x.bits[word])
		if rank+wc >= target {
			break
		}
		rank += wc
		word++
	}
	if word >= len(x.bits) {
		return -1
	}
	// Scan bits within the word.
	w := x.bits[word]
	for b := 0; b < 64; b++ {
		if w&(uint64(1)<<uint(b)) != 0 {
			rank++
			if rank == target {
				pos := word*64 + b
				if pos >= x.n {
					return -1
				}
				return pos
			}
		}
	}
	return -1
}

// Select0 returns the position of the (k+1)-th unset bit (0-indexed
// k), or -1 if there is no such bit. Used by wavelet trees to invert
// the zero branch of a level split.
func (x *Index) Select0(k int) int {
	if k < 0 {
		return -1
	}
	target := k + 1
	lo, hi := 0, x.n-1
	ans := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		zeros := (mid + 1) - x.Rank1(mid+1)
		if zeros >= target {
			ans = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return ans
}

// CountOnes returns the total number of set bits.
func (x *Index) CountOnes() int {
	if len(x.sblocks) == 0 {
		return 0
	}
	return int(x.sblocks[len(x.sblocks)-1])
}

// Builder accumulates bits in ascending position order and produces an
// immutable Index.
type Builder struct {
	bits []uint64
	n    int
}

// NewBuilder returns a Builder, optionally pre-sizing for nBits.
func NewBuilder(nBits int) *Builder {
	return &Builder{bits: make([]uint64, 0, (nBits+63)/64)}
}

// Append appends a single bit.
func (b *Builder) Append(set bool) {
	wordIdx := b.n / 64
	if wordIdx == len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	if set {
		b.bits[wordIdx] |= uint64(1) << uint(b.n%64)
	}
	b.n++
}

// Set sets the bit at position i, growing the vector as needed. i must
// be >= the builder's current length minus one position of slack: like
// every structure in this module, the builder is meant to be driven by
// ascending Append calls; Set exists for the rarer case (child removal
// placeholders) where positions are known up front.
func (b *Builder) Set(i int, set bool) {
	for b.n <= i {
		b.Append(false)
	}
	if set {
		b.bits[i/64] |= uint64(1) << uint(i%64)
	} else {
		b.bits[i/64] &^= uint64(1) << uint(i%64)
	}
}

// Build finalizes the bit vector and computes the rank/select side
// structures.
func (b *Builder) Build() *Index {
	x := &Index{bits: b.bits, n: b.n}
	x.blocks = make([]uint32, len(b.bits))
	x.sblocks = make([]uint64, (len(b.bits)+wordsPerSuperblock-1)/wordsPerSuperblock+1)
	var total uint64
	var withinSB uint32
	for w := 0; w < len(b.bits); w++ {
		if w%wordsPerSuperblock == 0 {
			x.sblocks[w/wordsPerSuperblock] = total
			withinSB = 0
		}
		x.blocks[w] = withinSB
		c := uint32(bits.OnesCount64(b.bits[w]))
		withinSB += c
		total += uint64(c)
	}
	x.sblocks[len(x.sblocks)-1] = total
	return x
}
