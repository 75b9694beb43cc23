// Package wavelet implements the wavelet tree used in two roles (§4.2,
// §4.4): as an id-map, a bijective permutation over 1..=N built during
// rollup when dictionary entries from several parents are merged into
// one lexical order; and as the predicate inversion index over an
// s_p adjacency list's right-values, giving an ordered enumeration of
// the positions at which a given predicate occurs.
//
// A wavelet tree over an alphabet of size N is a stack of
// bits.Len64(N) bit-indices, one per level, each level stably
// partitioning its input into the elements whose bit at that depth is
// 0 followed by those whose bit is 1. Access, Rank, and Select all
// walk the stack once, each step an O(1) rank/select query against a
// pkg/bitindex.Index.
//
// No succinct-data-structure library in the retrieved corpus exposes
// a wavelet tree (see DESIGN.md); this package is hand-built on
// pkg/bitindex and pkg/logarray.
package wavelet

import (
	"github.com/regulumdb/ferricstore/pkg/bitindex"
	"github.com/regulumdb/ferricstore/pkg/logarray"
)

// Tree is an immutable wavelet tree over a sequence of n symbols in
// 0..maxSymbol.
type Tree struct {
	levels []*bitindex.Index
	n      int
	width  int
}

// Build constructs a Tree over symbols. maxSymbol bounds the
// alphabet; every entry of symbols must be <= maxSymbol.
func Build(symbols []uint64, maxSymbol uint64) *Tree {
	width := logarray.WidthFor(maxSymbol)
	if len(symbols) == 0 {
		width = 1
	}
	t := &Tree{n: len(symbols), width: width}
	t.levels = make([]*bitindex.Index, width)

	current := make([]uint64, len(symbols))
	copy(current, symbols)

	for lvl := 0; lvl < width; lvl++ {
		shift := uint(width - 1 - lvl)
		b := bitindex.NewBuilder(len(current))
		for _, s := range current {
			b.Append((s>>shift)&1 != 0)
		}
		t.levels[lvl] = b.Build()

		zeros := make([]uint64, 0, len(current))
		ones := make([]uint64, 0, len(current))
		for _, s := range current {
			if (s>>shift)&1 == 0 {
				zeros = append(zeros, s)
			} else {
				ones = append(ones, s)
			}
		}
		current = append(zeros, ones...)
	}
	return t
}

// Len returns the number of symbols in the tree.
func (t *Tree) Len() int { return t.n }

// Access returns the symbol at position i.
func (t *Tree) Access(i int) uint64 {
	pos := i
	var sym uint64
	for _, lv := range t.levels {
		bit := lv.Bit(pos)
		sym <<= 1
		if bit {
			sym |= 1
			zerosTotal := lv.Len() - lv.CountOnes()
			pos = zerosTotal + lv.Rank1(pos)
		} else {
			pos = pos - lv.Rank1(pos)
		}
	}
	return sym
}

func (t *Tree) bitAt(symbol uint64, lvl int) uint64 {
	shift := uint(t.width - 1 - lvl)
	return (symbol >> shift) & 1
}

// narrowRange pushes the half-open range [lo, hi) of original
// positions down through every level, following the branch dictated
// by symbol's bits, and returns the corresponding range in the
// bottom-level (fully partitioned) array. A symbol wider than the
// tree's alphabet yields an empty range.
func (t *Tree) narrowRange(symbol uint64, lo, hi int) (int, int) {
	if symbol>>uint(t.width) != 0 {
		return 0, 0
	}
	for lvl, lv := range t.levels {
		if t.bitAt(symbol, lvl) == 0 {
			lo = lo - lv.Rank1(lo)
			hi = hi - lv.Rank1(hi)
		} else {
			zerosTotal := lv.Len() - lv.CountOnes()
			lo = zerosTotal + lv.Rank1(lo)
			hi = zerosTotal + lv.Rank1(hi)
		}
	}
	return lo, hi
}

// Rank returns the number of occurrences of symbol in positions
// [0, i).
func (t *Tree) Rank(symbol uint64, i int) int {
	lo, hi := t.narrowRange(symbol, 0, i)
	return hi - lo
}

// Select returns the position of the (k+1)-th occurrence of symbol
// (0-indexed k), or -1 if symbol occurs at most k times.
func (t *Tree) Select(symbol uint64, k int) int {
	if k < 0 {
		return -1
	}
	lo, hi := t.narrowRange(symbol, 0, t.n)
	pos := lo + k
	if pos >= hi {
		return -1
	}
	for lvl := len(t.levels) - 1; lvl >= 0; lvl-- {
		lv := t.levels[lvl]
		var next int
		if t.bitAt(symbol, lvl) == 0 {
			next = lv.Select0(pos)
		} else {
			zerosTotal := lv.Len() - lv.CountOnes()
			next = lv.Select1(pos - zerosTotal)
		}
		if next < 0 {
			return -1
		}
		pos = next
	}
	return pos
}

// Count returns the total number of occurrences of symbol across the
// whole tree.
func (t *Tree) Count(symbol uint64) int {
	return t.Rank(symbol, t.n)
}

// IDMap is the bijective id-map of §4.2: a wavelet tree built over a
// permutation of 1..=N, with out-of-range ids falling through as the
// identity. A nil *IDMap is the identity map over every id (N == 0).
type IDMap struct {
	tree *Tree
	n    int
}

// BuildIDMap constructs an IDMap from perm, where perm[i] (0-indexed)
// is the inner id assigned to outer id i+1. Every value 1..=len(perm)
// must appear in perm exactly once.
func BuildIDMap(perm []uint64) *IDMap {
	if len(perm) == 0 {
		return nil
	}
	shifted := make([]uint64, len(perm))
	var max uint64
	for i, v := range perm {
		shifted[i] = v - 1
		if v > max {
			max = v
		}
	}
	return &IDMap{tree: Build(shifted, max-1), n: len(perm)}
}

// OuterToInner maps an outer (insertion-order) id to its inner
// (final lexical) id. Ids outside 1..=N fall through unchanged.
func (m *IDMap) OuterToInner(x uint64) uint64 {
	if m == nil || x < 1 || x > uint64(m.n) {
		return x
	}
	return m.tree.Access(int(x-1)) + 1
}

// InnerToOuter is the inverse of OuterToInner.
func (m *IDMap) InnerToOuter(x uint64) uint64 {
	if m == nil || x < 1 || x > uint64(m.n) {
		return x
	}
	pos := m.tree.Select(x-1, 0)
	if pos < 0 {
		return x
	}
	return uint64(pos + 1)
}

// PredicateIndex is the predicate wavelet tree of §4.4: built over the
// right-values (predicate ids) of an s_p adjacency list, it gives an
// ordered enumeration of the positions at which a predicate occurs so
// that scanning them in increasing order reproduces global triple
// order for triples_p.
type PredicateIndex struct {
	tree *Tree
}

// BuildPredicateIndex constructs a PredicateIndex over the predicate
// id occurring at each position of an s_p adjacency list's
// right-values, bounded by maxPredicate.
func BuildPredicateIndex(predicateAtPos []uint64, maxPredicate uint64) *PredicateIndex {
	return &PredicateIndex{tree: Build(predicateAtPos, maxPredicate)}
}

// PositionsFor returns every position in the underlying s_p
// right-values at which predicate p occurs, in increasing order.
func (p *PredicateIndex) PositionsFor(predicate uint64) []int {
	count := p.tree.Count(predicate)
	out := make([]int, 0, count)
	for k := 0; k < count; k++ {
		pos := p.tree.Select(predicate, k)
		if pos < 0 {
			break
		}
		out = append(out, pos)
	}
	return out
}

// NumOccurrences returns how many positions predicate p occurs at.
func (p *PredicateIndex) NumOccurrences(predicate uint64) int {
	return p.tree.Count(predicate)
}
