// Package adjacency implements the sorted multimap k -> [v1 < v2 ...]
// of §4.3: a bit-index with one bit per right-value position (set at
// each left-group's last entry) paired with a packed log-array of
// right-values, giving O(1) offset_for/pairs_at_pos derived from
// rank/select.
package adjacency

import (
	"github.com/regulumdb/ferricstore/pkg/bitindex"
	"github.com/regulumdb/ferricstore/pkg/logarray"
)

// List is an immutable sorted multimap uint64 -> uint64.
type List struct {
	bits *bitindex.Index // group terminators: one bit per right-value position
	nums *logarray.Array // right-values
}

// RightCount returns |N|, the total number of right-value entries.
func (l *List) RightCount() int { return l.nums.Len() }

// LeftCount returns the number of left-keys spanned by the list (the
// number of group terminators).
func (l *List) LeftCount() int { return l.bits.CountOnes() }

// OffsetFor returns the position in N of the first entry for
// left-key k (1-indexed), or -1 if k exceeds LeftCount.
func (l *List) OffsetFor(k uint64) int {
	if k < 1 || k > uint64(l.LeftCount()) {
		return -1
	}
	pos := l.bits.Select1(int(k) - 2)
	if k == 1 {
		return 0
	}
	if pos < 0 {
		return -1
	}
	return pos + 1
}

// PairAtPos returns the (left_key, right_value) pair whose right
// value sits at position i (0-indexed) in N.
func (l *List) PairAtPos(i int) (leftKey, rightValue uint64) {
	leftKey = uint64(l.bits.Rank1(i)) + 1
	rightValue = l.nums.Get(i)
	return
}

// BitAtPos reports whether position i is a group terminator (the
// last right-value entry for its left-key).
func (l *List) BitAtPos(i int) bool { return l.bits.Bit(i) }

// NumAtPos returns the right-value stored at position i.
func (l *List) NumAtPos(i int) uint64 { return l.nums.Get(i) }

// ValuesFor returns every right-value associated with left-key k, in
// ascending order. A 0 entry is a placeholder for "no entries" and is
// never returned.
func (l *List) ValuesFor(k uint64) []uint64 {
	start := l.OffsetFor(k)
	if start < 0 {
		return nil
	}
	var out []uint64
	for i := start; i < l.RightCount(); i++ {
		v := l.nums.Get(i)
		if v != 0 {
			out = append(out, v)
		}
		if l.bits.Bit(i) {
			break
		}
	}
	return out
}

// Builder accumulates (leftKey, rightValues...) groups in ascending
// left-key order, each group's right-values already sorted ascending,
// and produces an immutable List.
type Builder struct {
	bitBuilder *bitindex.Builder
	numBuilder *logarray.Builder
	pos        int
}

// NewBuilder returns an empty Builder, optionally pre-sizing for n
// right-value entries.
func NewBuilder(n int) *Builder {
	return &Builder{
		bitBuilder: bitindex.NewBuilder(n),
		numBuilder: logarray.NewBuilder(n),
	}
}

// AddGroup appends one left-key's group of right-values (or a single
// 0 placeholder if values is empty and the left-key domain must stay
// dense). The final entry of the group is marked as the group
// terminator.
func (b *Builder) AddGroup(values []uint64) {
	if len(values) == 0 {
		values = []uint64{0}
	}
	for i, v := range values {
		b.numBuilder.Append(v)
		b.bitBuilder.Append(i == len(values)-1)
		b.pos++
	}
}

// Build finalizes the adjacency list.
func (b *Builder) Build() *List {
	return &List{bits: b.bitBuilder.Build(), nums: b.numBuilder.Build()}
}
