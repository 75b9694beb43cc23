package dict

import (
	"bytes"
	"fmt"

	"github.com/regulumdb/ferricstore/pkg/logarray"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
)

// Tag identifies the datatype of a typed-dictionary entry. Segment
// order (and hence global id order) follows the declaration order
// below: string first, then numeric tags in ascending Tag order, per
// §4.1 ("string segment first, then numeric segments by tag order").
type Tag uint8

const (
	TagString Tag = iota
	TagU32
	TagI32
	TagU64
	TagI64
	TagF32
	TagF64
	TagBigInt
	TagDecimal
)

// tagOrder is the fixed segment order used whenever every tag is
// iterated, independent of which tags a particular dictionary uses.
var tagOrder = []Tag{TagString, TagU32, TagI32, TagU64, TagI64, TagF32, TagF64, TagBigInt, TagDecimal}

// AllTags returns every datatype tag in segment order.
func AllTags() []Tag { return append([]Tag(nil), tagOrder...) }

func fixedWidth(tag Tag) (int, bool) {
	switch tag {
	case TagU32, TagI32, TagF32:
		return 4, true
	case TagU64, TagI64, TagF64:
		return 8, true
	default:
		return 0, false
	}
}

// FixedWidthDict is an array of fixed-size encoded values, indexed
// directly by (id-1)*width with no front coding: §4.1 specifies that
// fixed-width types "encode records directly".
type FixedWidthDict struct {
	width int
	data  []byte
}

// NumEntries returns the number of entries.
func (f *FixedWidthDict) NumEntries() int {
	if f == nil || f.width == 0 {
		return 0
	}
	return len(f.data) / f.width
}

// Entry returns the width-byte encoded value at localID (1-indexed).
func (f *FixedWidthDict) Entry(localID uint64) ([]byte, error) {
	n := f.NumEntries()
	if localID < 1 || localID > uint64(n) {
		return nil, storeerr.ErrNotFound
	}
	start := int(localID-1) * f.width
	return f.data[start : start+f.width], nil
}

// ID finds the id of an exact width-byte encoded value by binary
// search, since fixed-width segments are still built in ascending
// encoded-byte order.
func (f *FixedWidthDict) ID(encoded []byte) Lookup {
	n := f.NumEntries()
	lo, hi := 0, n-1
	ans := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		cur := f.data[mid*f.width : mid*f.width+f.width]
		cmp := bytes.Compare(cur, encoded)
		switch {
		case cmp == 0:
			return Lookup{Kind: Found, ID: uint64(mid + 1)}
		case cmp < 0:
			ans = mid
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	if ans == -1 {
		return Lookup{Kind: NotFound}
	}
	return Lookup{Kind: Closest, ID: uint64(ans + 1)}
}

// FixedWidthBuilder accumulates fixed-width values in strictly
// ascending encoded-byte order.
type FixedWidthBuilder struct {
	width   int
	data    []byte
	hasLast bool
	last    []byte
}

// NewFixedWidthBuilder returns a builder for width-byte entries.
func NewFixedWidthBuilder(width int) *FixedWidthBuilder {
	return &FixedWidthBuilder{width: width}
}

// Add appends encoded, which must be width bytes long and sort
// strictly after every value added so far.
func (b *FixedWidthBuilder) Add(encoded []byte) error {
	if len(encoded) != b.width {
		return fmt.Errorf("dict: %w: fixed-width entry is %d bytes, want %d",
			storeerr.ErrInvalidCoding, len(encoded), b.width)
	}
	if b.hasLast && bytes.Compare(encoded, b.last) <= 0 {
		return &storeerr.OutOfOrderError{Prev: string(b.last), Got: string(encoded)}
	}
	b.data = append(b.data, encoded...)
	b.last = append([]byte(nil), encoded...)
	b.hasLast = true
	return nil
}

// Build finalizes the fixed-width segment.
func (b *FixedWidthBuilder) Build() *FixedWidthDict {
	return &FixedWidthDict{width: b.width, data: b.data}
}

// TypedDictionary is a container of up to one sub-dictionary per
// datatype tag, with globally increasing ids across segments (§4.1).
type TypedDictionary struct {
	present    []Tag // tags with a non-empty segment, in tagOrder order
	startID    []uint64
	dicts      map[Tag]*Dictionary
	fixedDicts map[Tag]*FixedWidthDict
	total      uint64
}

// NumEntries returns the total entry count across every segment.
func (t *TypedDictionary) NumEntries() uint64 { return t.total }

// Entry returns the raw encoded bytes and tag for a global id.
func (t *TypedDictionary) Entry(id uint64) (Tag, []byte, error) {
	tag, localID, err := t.TypeIndexForID(id)
	if err != nil {
		return 0, nil, err
	}
	if w, ok := fixedWidth(tag); ok {
		_ = w
		b, err := t.fixedDicts[tag].Entry(localID)
		return tag, b, err
	}
	b, err := t.dicts[tag].Entry(localID)
	return tag, b, err
}

// TypeIndexForID resolves a global id to its tag and the local id
// within that tag's segment.
//
// This is the linear scan over segment start offsets described
// unresolved in the source material; for dictionaries with many
// datatype segments a binary search over startID would be faster.
// TODO: switch to binary search once typed dictionaries commonly
// carry more than a handful of segments.
func (t *TypedDictionary) TypeIndexForID(id uint64) (Tag, uint64, error) {
	if id < 1 || id > t.total {
		return 0, 0, storeerr.ErrNotFound
	}
	for i := len(t.present) - 1; i >= 0; i-- {
		if id >= t.startID[i] {
			return t.present[i], id - t.startID[i] + 1, nil
		}
	}
	return 0, 0, storeerr.ErrNotFound
}

// ID looks up the global id of an encoded value under tag.
func (t *TypedDictionary) ID(tag Tag, encoded []byte) (Lookup, error) {
	start, ok := t.segmentStart(tag)
	if !ok {
		return Lookup{Kind: NotFound}, nil
	}
	if w, fixed := fixedWidth(tag); fixed {
		_ = w
		lk := t.fixedDicts[tag].ID(encoded)
		if lk.Kind != NotFound {
			lk.ID += start - 1
		}
		return lk, nil
	}
	lk, err := t.dicts[tag].ID(encoded)
	if err != nil {
		return Lookup{}, err
	}
	if lk.Kind != NotFound {
		lk.ID += start - 1
	}
	return lk, nil
}

func (t *TypedDictionary) segmentStart(tag Tag) (uint64, bool) {
	for i, pt := range t.present {
		if pt == tag {
			return t.startID[i], true
		}
	}
	return 0, false
}

// SegmentStart returns the global id of the first entry in tag's
// segment, or ok == false if tag has no entries.
func (t *TypedDictionary) SegmentStart(tag Tag) (start uint64, ok bool) {
	return t.segmentStart(tag)
}

// Present returns the tags with a non-empty segment, in tagOrder
// order.
func (t *TypedDictionary) Present() []Tag {
	return append([]Tag(nil), t.present...)
}

// EntriesForTag returns every entry of tag's segment, in ascending
// encoded-byte order, or nil if tag has no entries in t.
func (t *TypedDictionary) EntriesForTag(tag Tag) [][]byte {
	start, ok := t.segmentStart(tag)
	if !ok {
		return nil
	}
	var out [][]byte
	if w, fixed := fixedWidth(tag); fixed {
		_ = w
		fd := t.fixedDicts[tag]
		for i := 1; i <= fd.NumEntries(); i++ {
			b, _ := fd.Entry(uint64(i))
			out = append(out, b)
		}
		return out
	}
	it := t.dicts[tag].Iter()
	for {
		_, entry, ok, _ := it.Next()
		if !ok {
			break
		}
		out = append(out, entry)
	}
	_ = start
	return out
}

// TypedBuilder builds a TypedDictionary by ingesting one tag's
// segment at a time, in tagOrder order, each with entries in
// ascending encoded-byte order.
type TypedBuilder struct {
	dictBuilders  map[Tag]*Builder
	fixedBuilders map[Tag]*FixedWidthBuilder
	used          map[Tag]bool
}

// NewTypedBuilder returns an empty TypedBuilder.
func NewTypedBuilder() *TypedBuilder {
	return &TypedBuilder{
		dictBuilders:  make(map[Tag]*Builder),
		fixedBuilders: make(map[Tag]*FixedWidthBuilder),
		used:          make(map[Tag]bool),
	}
}

// Add appends an already-encoded value under tag. Values must be
// added tag segment by tag segment, in tagOrder order, with each
// segment's entries in strictly ascending encoded order.
func (b *TypedBuilder) Add(tag Tag, encoded []byte) error {
	b.used[tag] = true
	if width, ok := fixedWidth(tag); ok {
		fb, exists := b.fixedBuilders[tag]
		if !exists {
			fb = NewFixedWidthBuilder(width)
			b.fixedBuilders[tag] = fb
		}
		return fb.Add(encoded)
	}
	db, exists := b.dictBuilders[tag]
	if !exists {
		db = NewBuilder()
		b.dictBuilders[tag] = db
	}
	return db.Add(encoded)
}

// Build finalizes every used segment into a TypedDictionary.
func (b *TypedBuilder) Build() *TypedDictionary {
	t := &TypedDictionary{
		dicts:      make(map[Tag]*Dictionary),
		fixedDicts: make(map[Tag]*FixedWidthDict),
	}
	var running uint64 = 1
	for _, tag := range tagOrder {
		if !b.used[tag] {
			continue
		}
		var count uint64
		if _, ok := fixedWidth(tag); ok {
			fd := b.fixedBuilders[tag].Build()
			t.fixedDicts[tag] = fd
			count = uint64(fd.NumEntries())
		} else {
			d := b.dictBuilders[tag].Build()
			t.dicts[tag] = d
			count = uint64(d.NumEntries())
		}
		if count == 0 {
			continue
		}
		t.present = append(t.present, tag)
		t.startID = append(t.startID, running)
		running += count
		t.total += count
	}
	return t
}

// typesPresentArray renders the tags with a non-empty segment as a
// monotone log-array of Tag values, matching the on-disk
// types_present structure described in §4.1.
func (t *TypedDictionary) typesPresentArray() *logarray.Array {
	b := logarray.NewBuilder(len(t.present))
	for _, tag := range t.present {
		b.Append(uint64(tag))
	}
	return b.Build()
}

// typeOffsetsArray renders the 1-based start id of each present
// segment (the cumulative entry count before it, plus one).
func (t *TypedDictionary) typeOffsetsArray() *logarray.Array {
	b := logarray.NewBuilder(len(t.startID))
	for _, s := range t.startID {
		b.Append(s)
	}
	return b.Build()
}
