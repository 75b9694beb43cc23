// Package dict implements the front-coded sorted byte-string
// dictionary (§4.1): a sequence of fixed-size blocks of up to
// BlockSize entries, each entry after the first in a block stored as
// a shared-prefix length plus a suffix, with block start offsets
// recorded in a log-array for O(log n) block lookup by key.
package dict

import (
	"bytes"
	"fmt"

	"github.com/regulumdb/ferricstore/pkg/constants"
	"github.com/regulumdb/ferricstore/pkg/logarray"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
	"github.com/regulumdb/ferricstore/pkg/strutil"
	"github.com/regulumdb/ferricstore/pkg/varint"
)

// BlockSize is the number of entries per front-coded block, per §4.1.
const BlockSize = 8

// Kind classifies the result of an Id lookup.
type Kind int

const (
	// Found means the key matched an entry exactly.
	Found Kind = iota
	// Closest means the key was not present; ID is the largest id
	// whose entry is strictly less than key.
	Closest
	// NotFound means key precedes every entry in the dictionary.
	NotFound
)

// Lookup is the result of Dictionary.ID.
type Lookup struct {
	Kind Kind
	ID   uint64
}

// Dictionary is an immutable, front-coded sorted sequence of byte
// strings with ids 1..=n.
type Dictionary struct {
	blocks     []byte
	offsets    *logarray.Array // byte offset of the start of each block
	numEntries int
}

// NumEntries returns the number of entries in the dictionary.
func (d *Dictionary) NumEntries() int { return d.numEntries }

// NumBlocks returns the number of front-coded blocks.
func (d *Dictionary) NumBlocks() int {
	if d == nil || d.offsets == nil {
		return 0
	}
	return d.offsets.Len()
}

// Entry returns the byte string stored at id (1-indexed).
func (d *Dictionary) Entry(id uint64) ([]byte, error) {
	if id < 1 || id > uint64(d.numEntries) {
		return nil, storeerr.ErrNotFound
	}
	blockIdx := int(id-1) / BlockSize
	within := int(id-1) % BlockSize
	entries, _, err := decodeBlock(d.blocks, int(d.offsets.Get(blockIdx)))
	if err != nil {
		return nil, err
	}
	if within >= len(entries) {
		return nil, storeerr.ErrInvalidCoding
	}
	return entries[within], nil
}

// EntryString is Entry, returned as a string. Since node and predicate
// names repeat heavily across unrelated entries (type and property
// names especially), it interns via strutil.StringFromBytes rather
// than doing a plain string(b) conversion.
func (d *Dictionary) EntryString(id uint64) (string, error) {
	b, err := d.Entry(id)
	if err != nil {
		return "", err
	}
	return strutil.StringFromBytes(b), nil
}

// ID locates key in the dictionary: binary search the first entry of
// each block, then scan the located block to resolve an exact,
// closest, or absent match.
func (d *Dictionary) ID(key []byte) (Lookup, error) {
	numBlocks := d.NumBlocks()
	if numBlocks == 0 {
		return Lookup{Kind: NotFound}, nil
	}

	lo, hi := 0, numBlocks-1
	blockOf := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		first, err := firstEntryOfBlock(d.blocks, int(d.offsets.Get(mid)))
		if err != nil {
			return Lookup{}, err
		}
		if bytes.Compare(first, key) <= 0 {
			blockOf = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if blockOf == -1 {
		return Lookup{Kind: NotFound}, nil
	}

	entries, _, err := decodeBlock(d.blocks, int(d.offsets.Get(blockOf)))
	if err != nil {
		return Lookup{}, err
	}
	baseID := uint64(blockOf*BlockSize) + 1
	for j, e := range entries {
		cmp := bytes.Compare(e, key)
		if cmp == 0 {
			return Lookup{Kind: Found, ID: baseID + uint64(j)}, nil
		}
		if cmp > 0 {
			if j == 0 {
				return Lookup{Kind: NotFound}, nil
			}
			return Lookup{Kind: Closest, ID: baseID + uint64(j) - 1}, nil
		}
	}
	return Lookup{Kind: Closest, ID: baseID + uint64(len(entries)) - 1}, nil
}

// Iterator walks a Dictionary block by block, then entry by entry
// within each block, and can be restarted at any id.
type Iterator struct {
	d       *Dictionary
	nextID  uint64
	block   [][]byte
	blockID uint64 // id of block[0]
}

// Iter returns an Iterator positioned before the first entry.
func (d *Dictionary) Iter() *Iterator {
	return &Iterator{d: d, nextID: 1}
}

// SeekTo restarts the iterator at id.
func (it *Iterator) SeekTo(id uint64) {
	it.nextID = id
	it.block = nil
}

// Next advances the iterator and returns the next (id, entry) pair,
// or ok == false once the dictionary is exhausted.
func (it *Iterator) Next() (id uint64, entry []byte, ok bool, err error) {
	if it.nextID < 1 || it.nextID > uint64(it.d.numEntries) {
		return 0, nil, false, nil
	}
	blockIdx := int(it.nextID-1) / BlockSize
	wantBlockID := uint64(blockIdx*BlockSize) + 1
	if it.block == nil || it.blockID != wantBlockID {
		entries, _, derr := decodeBlock(it.d.blocks, int(it.d.offsets.Get(blockIdx)))
		if derr != nil {
			return 0, nil, false, derr
		}
		it.block = entries
		it.blockID = wantBlockID
	}
	within := int(it.nextID - it.blockID)
	if within >= len(it.block) {
		return 0, nil, false, nil
	}
	id = it.nextID
	entry = it.block[within]
	it.nextID++
	return id, entry, true, nil
}

// Builder accumulates entries in strictly ascending lexical order and
// produces an immutable Dictionary.
type Builder struct {
	blocks    []byte
	offsets   *logarray.Builder
	pending   [][]byte
	last      []byte
	hasLast   bool
	count     int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{offsets: logarray.NewBuilder(0)}
}

// Add appends entry, which must sort strictly after every entry added
// so far.
func (b *Builder) Add(entry []byte) error {
	if len(entry) > constants.MaxDictEntrySize {
		return fmt.Errorf("dict: entry of %d bytes exceeds MaxDictEntrySize (%d)", len(entry), constants.MaxDictEntrySize)
	}
	if b.hasLast && bytes.Compare(entry, b.last) <= 0 {
		return &storeerr.OutOfOrderError{Prev: string(b.last), Got: string(entry)}
	}
	cp := append([]byte(nil), entry...)
	b.pending = append(b.pending, cp)
	b.last = cp
	b.hasLast = true
	b.count++
	if len(b.pending) == BlockSize {
		b.flush()
	}
	return nil
}

func (b *Builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	b.offsets.Append(uint64(len(b.blocks)))
	b.blocks = appendBlock(b.blocks, b.pending)
	b.pending = b.pending[:0]
}

// Build finalizes the dictionary.
func (b *Builder) Build() *Dictionary {
	b.flush()
	return &Dictionary{
		blocks:     b.blocks,
		offsets:    b.offsets.Build(),
		numEntries: b.count,
	}
}

func commonPrefixLen(a, bb []byte) int {
	n := len(a)
	if len(bb) < n {
		n = len(bb)
	}
	i := 0
	for i < n && a[i] == bb[i] {
		i++
	}
	return i
}

func appendBlock(buf []byte, entries [][]byte) []byte {
	buf = append(buf, byte(len(entries)))
	buf = varint.Append(buf, uint64(len(entries[0])))
	shared := make([]int, len(entries))
	for i := 1; i < len(entries); i++ {
		shared[i] = commonPrefixLen(entries[i-1], entries[i])
		suffixLen := len(entries[i]) - shared[i]
		buf = varint.Append(buf, uint64(shared[i]))
		buf = varint.Append(buf, uint64(suffixLen))
	}
	buf = append(buf, entries[0]...)
	for i := 1; i < len(entries); i++ {
		buf = append(buf, entries[i][shared[i]:]...)
	}
	return buf
}

// firstEntryOfBlock returns a block's first entry without
// reconstructing the rest of the block.
func firstEntryOfBlock(blocks []byte, off int) ([]byte, error) {
	if off < 0 || off >= len(blocks) {
		return nil, storeerr.ErrUnexpectedEOF
	}
	count := int(blocks[off])
	if count < 1 || count > BlockSize {
		return nil, fmt.Errorf("dict: %w: block count %d out of range", storeerr.ErrInvalidCoding, count)
	}
	p := off + 1
	firstLen, n := varint.Decode(blocks[p:])
	if n == 0 {
		return nil, storeerr.ErrUnexpectedEOF
	}
	p += n
	for i := 0; i < count-1; i++ {
		_, n1 := varint.Decode(blocks[p:])
		if n1 == 0 {
			return nil, storeerr.ErrUnexpectedEOF
		}
		p += n1
		_, n2 := varint.Decode(blocks[p:])
		if n2 == 0 {
			return nil, storeerr.ErrUnexpectedEOF
		}
		p += n2
	}
	if p+int(firstLen) > len(blocks) {
		return nil, storeerr.ErrUnexpectedEOF
	}
	return blocks[p : p+int(firstLen)], nil
}

// decodeBlock reconstructs every entry of the block starting at off,
// returning the entries and the number of bytes consumed.
func decodeBlock(blocks []byte, off int) ([][]byte, int, error) {
	start := off
	if off < 0 || off >= len(blocks) {
		return nil, 0, storeerr.ErrUnexpectedEOF
	}
	count := int(blocks[off])
	if count < 1 || count > BlockSize {
		return nil, 0, fmt.Errorf("dict: %w: block count %d out of range", storeerr.ErrInvalidCoding, count)
	}
	off++
	firstLen, n := varint.Decode(blocks[off:])
	if n == 0 {
		return nil, 0, storeerr.ErrUnexpectedEOF
	}
	off += n

	type hdr struct{ shared, suffix int }
	hdrs := make([]hdr, count-1)
	for i := 0; i < count-1; i++ {
		shared, n1 := varint.Decode(blocks[off:])
		if n1 == 0 {
			return nil, 0, storeerr.ErrUnexpectedEOF
		}
		off += n1
		suffix, n2 := varint.Decode(blocks[off:])
		if n2 == 0 {
			return nil, 0, storeerr.ErrUnexpectedEOF
		}
		off += n2
		hdrs[i] = hdr{int(shared), int(suffix)}
	}

	if off+int(firstLen) > len(blocks) {
		return nil, 0, storeerr.ErrUnexpectedEOF
	}
	entries := make([][]byte, count)
	entries[0] = blocks[off : off+int(firstLen)]
	off += int(firstLen)
	prev := entries[0]
	for i := 0; i < count-1; i++ {
		h := hdrs[i]
		if h.shared > len(prev) || off+h.suffix > len(blocks) {
			return nil, 0, storeerr.ErrInvalidCoding
		}
		buf := make([]byte, h.shared+h.suffix)
		copy(buf, prev[:h.shared])
		copy(buf[h.shared:], blocks[off:off+h.suffix])
		off += h.suffix
		entries[i+1] = buf
		prev = buf
	}
	return entries, off - start, nil
}
