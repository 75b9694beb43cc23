package rollup

import (
	"bytes"

	"github.com/regulumdb/ferricstore/pkg/dict"
)

// decodeAllEntries reads every entry of d in ascending order. A nil
// Dictionary (a layer that never introduced any entries of this kind)
// decodes to nil.
func decodeAllEntries(d *dict.Dictionary) [][]byte {
	if d == nil {
		return nil
	}
	it := d.Iter()
	var out [][]byte
	for {
		_, e, ok, _ := it.Next()
		if !ok {
			break
		}
		out = append(out, append([]byte(nil), e...))
	}
	return out
}

// mergeSource is one layer's contribution to a k-way string merge:
// its entries in ascending order, plus the old-global-id base offset
// those entries are numbered from (offset + 1-based index within
// entries).
type mergeSource struct {
	entries [][]byte
	offset  uint64
}

// mergeEntries performs the k-way sorted merge with dedup of §4.7's
// merge_string_dictionaries / merge_typed_dictionaries: repeatedly
// pick the lexicographically smallest pending entry across every
// source, assign it the next new id (reusing the previous new id for
// an exact duplicate instead of advancing it), and record, for every
// source position consumed, the old-global-id -> new-id mapping in
// perm. totalOld is the number of old-global-ids spanned (the highest
// source offset plus that source's entry count).
func mergeEntries(sources []mergeSource, totalOld uint64, emit func(entry []byte)) []uint64 {
	perm := make([]uint64, totalOld)
	idx := make([]int, len(sources))
	var newID uint64
	var lastEmitted []byte
	hasLast := false

	for {
		best := -1
		for i, s := range sources {
			if idx[i] >= len(s.entries) {
				continue
			}
			if best == -1 || bytes.Compare(s.entries[idx[i]], sources[best].entries[idx[best]]) < 0 {
				best = i
			}
		}
		if best == -1 {
			break
		}
		entry := sources[best].entries[idx[best]]
		oldGlobalID := sources[best].offset + uint64(idx[best]) + 1

		if hasLast && bytes.Equal(entry, lastEmitted) {
			perm[oldGlobalID-1] = newID
			idx[best]++
			continue
		}
		newID++
		emit(entry)
		lastEmitted = entry
		hasLast = true
		perm[oldGlobalID-1] = newID
		idx[best]++
	}
	return perm
}

// mergeStringDictionaries merges dicts (one per stack layer,
// base-to-leaf, nil for a layer that added none) into a single
// dictionary, returning it and the old-global-id -> new-id
// permutation. offsets[i] is the cumulative entry count of every
// layer strictly below layer i.
func mergeStringDictionaries(dicts []*dict.Dictionary, offsets []uint64) (*dict.Dictionary, []uint64) {
	sources := make([]mergeSource, len(dicts))
	var totalOld uint64
	for i, d := range dicts {
		entries := decodeAllEntries(d)
		sources[i] = mergeSource{entries: entries, offset: offsets[i]}
		if n := offsets[i] + uint64(len(entries)); n > totalOld {
			totalOld = n
		}
	}
	builder := dict.NewBuilder()
	perm := mergeEntries(sources, totalOld, func(entry []byte) {
		builder.Add(entry)
	})
	return builder.Build(), perm
}

// typedSourceEntries reads layer i's contribution to tag's segment,
// if any: the entries in ascending order and the old-global-id of
// the first one.
func typedSourceEntries(td *dict.TypedDictionary, tag dict.Tag, valueOffset uint64) (mergeSource, bool) {
	if td == nil {
		return mergeSource{}, false
	}
	start, ok := td.SegmentStart(tag)
	if !ok {
		return mergeSource{}, false
	}
	return mergeSource{entries: td.EntriesForTag(tag), offset: valueOffset + start - 1}, true
}

// mergeTypedDictionaries merges typed dicts the same way as
// mergeStringDictionaries, but per datatype segment in tag order, so
// the merged dictionary's global ids follow §4.1's "string segment
// first, then numeric segments by tag order" rule. valueOffsets[i] is
// the cumulative total-value-count of every layer strictly below
// layer i (spanning every tag, since a layer's own TypedDictionary
// numbers its segments contiguously as one id space).
func mergeTypedDictionaries(typedDicts []*dict.TypedDictionary, valueOffsets []uint64) (*dict.TypedDictionary, []uint64) {
	var totalOld uint64
	for i, td := range typedDicts {
		if td == nil {
			continue
		}
		if n := valueOffsets[i] + td.NumEntries(); n > totalOld {
			totalOld = n
		}
	}
	perm := make([]uint64, totalOld)
	builder := dict.NewTypedBuilder()

	for _, tag := range dict.AllTags() {
		var sources []mergeSource
		for i, td := range typedDicts {
			src, ok := typedSourceEntries(td, tag, valueOffsets[i])
			if !ok {
				continue
			}
			sources = append(sources, src)
		}
		if len(sources) == 0 {
			continue
		}
		tagPerm := mergeEntries(sources, totalOld, func(entry []byte) {
			builder.Add(tag, entry)
		})
		for i, v := range tagPerm {
			if v != 0 {
				perm[i] = v
			}
		}
	}
	return builder.Build(), perm
}
