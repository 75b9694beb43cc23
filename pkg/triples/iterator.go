// Package triples implements §4.6's per-layer and cross-layer triple
// iterators: seekable subject-ordered and predicate-ordered walks over
// a single layer's TripleSet, and a k-way merge across a layer stack
// that applies precedence cancellation so only the effective triples
// of the stack are yielded.
package triples

import "github.com/regulumdb/ferricstore/pkg/layer"

// SubjectIterator walks a TripleSet in (subject, predicate, object)
// order. Its cursor is the triple (sPos, spPos, spoPos) of §4.6: a
// subject group index, a position within s_p, and a position within
// sp_o.
type SubjectIterator struct {
	ts *layer.TripleSet

	sPos   int // 0-indexed subject group index; -1 once exhausted
	spPos  int // position within ts.SP.NumAtPos/BitAtPos for the current subject
	spoPos int // position within ts.SPO.NumAtPos/BitAtPos for the current (s,p) group; -1 if not yet entered
}

// NewSubjectIterator returns an iterator positioned at the start of
// ts, equivalent to Seek(0).
func NewSubjectIterator(ts *layer.TripleSet) *SubjectIterator {
	it := &SubjectIterator{ts: ts}
	it.Seek(0)
	return it
}

// ceilSubjectGroup returns the smallest 0-indexed subject group whose
// subject id is >= s, or ts.Subjects' length if none exists.
func ceilSubjectGroup(ts *layer.TripleSet, s uint64) int {
	if s == 0 {
		return 0
	}
	return ts.Subjects.NearestIndexForMonotone(s-1) + 1
}

// Seek positions the iterator so the next Next() call returns the
// first triple with subject >= s. Seek(0) resets to the beginning.
func (it *SubjectIterator) Seek(s uint64) {
	if it.ts.SP.LeftCount() == 0 {
		it.sPos = -1
		return
	}
	g := ceilSubjectGroup(it.ts, s)
	if g >= it.ts.Subjects.Len() {
		it.sPos = -1
		return
	}
	it.sPos = g
	it.enterSubjectGroup()
}

// enterSubjectGroup positions spPos/spoPos at the start of the
// current subject group, skipping it if empty.
func (it *SubjectIterator) enterSubjectGroup() {
	for it.sPos != -1 {
		off := it.ts.SP.OffsetFor(uint64(it.sPos) + 1)
		if off >= 0 {
			it.spPos = off
			it.spoPos = -1
			return
		}
		it.advanceSubject()
	}
}

func (it *SubjectIterator) advanceSubject() {
	it.sPos++
	if it.sPos >= it.ts.Subjects.Len() {
		it.sPos = -1
		return
	}
	off := it.ts.SP.OffsetFor(uint64(it.sPos) + 1)
	if off < 0 {
		it.advanceSubject()
		return
	}
	it.spPos = off
	it.spoPos = -1
}

// SeekSubjectPredicate positions the iterator at the first object of
// the (s, p) group if present; otherwise at the first predicate
// strictly following p within s's group, or the start of the next
// subject if none remains.
func (it *SubjectIterator) SeekSubjectPredicate(s, p uint64) {
	it.Seek(s)
	for it.sPos != -1 {
		subject := it.ts.Subjects.Get(it.sPos)
		if subject != s {
			return
		}
		for it.spPos < it.ts.SP.RightCount() {
			predicate := it.ts.SP.NumAtPos(it.spPos)
			if predicate >= p {
				it.spoPos = -1
				return
			}
			term := it.ts.SP.BitAtPos(it.spPos)
			it.spPos++
			if term {
				break
			}
		}
		it.advanceSubject()
	}
}

// Next returns the next triple in ascending order, or ok == false
// once the iterator is exhausted.
func (it *SubjectIterator) Next() (layer.Triple, bool) {
	for it.sPos != -1 {
		if it.spPos >= it.ts.SP.RightCount() {
			it.advanceSubject()
			continue
		}
		predicate := it.ts.SP.NumAtPos(it.spPos)
		spGroupIndex := uint64(it.spPos) + 1

		if it.spoPos < 0 {
			off := it.ts.SPO.OffsetFor(spGroupIndex)
			if off < 0 {
				it.finishPredicate()
				continue
			}
			it.spoPos = off
		}

		if it.spoPos >= it.ts.SPO.RightCount() {
			it.finishPredicate()
			continue
		}

		obj := it.ts.SPO.NumAtPos(it.spoPos)
		objTerm := it.ts.SPO.BitAtPos(it.spoPos)
		it.spoPos++
		if objTerm {
			it.finishPredicate()
		}
		if obj == 0 {
			continue
		}
		subject := it.ts.Subjects.Get(it.sPos)
		return layer.Triple{Subject: subject, Predicate: predicate, Object: obj}, true
	}
	return layer.Triple{}, false
}

// finishPredicate advances past the current (s,p) group, moving to
// the next predicate or, if this was the subject's last predicate,
// to the next subject.
func (it *SubjectIterator) finishPredicate() {
	term := it.ts.SP.BitAtPos(it.spPos)
	it.spPos++
	it.spoPos = -1
	if term {
		it.advanceSubject()
	}
}

// PredicateIterator walks every triple mentioning a fixed predicate,
// driven by the layer's predicate wavelet index rather than a linear
// scan of s_p.
type PredicateIterator struct {
	ts        *layer.TripleSet
	predicate uint64
	positions []int
	posIdx    int

	pending        []uint64
	pendingSubject uint64
}

// NewPredicateIterator returns an iterator over every triple in ts
// whose predicate is p.
func NewPredicateIterator(ts *layer.TripleSet, p uint64) *PredicateIterator {
	return &PredicateIterator{
		ts:        ts,
		predicate: p,
		positions: ts.PredicateIndex.PositionsFor(p),
	}
}

// Next returns the next (subject, p, object) triple, or ok == false
// once exhausted.
func (it *PredicateIterator) Next() (layer.Triple, bool) {
	for len(it.pending) == 0 {
		if it.posIdx >= len(it.positions) {
			return layer.Triple{}, false
		}
		pos := it.positions[it.posIdx]
		it.posIdx++

		leftKey, _ := it.ts.SP.PairAtPos(pos)
		subject := it.ts.Subjects.Get(int(leftKey) - 1)

		spGroupIndex := uint64(pos) + 1
		start := it.ts.SPO.OffsetFor(spGroupIndex)
		if start < 0 {
			continue
		}
		var objs []uint64
		for i := start; i < it.ts.SPO.RightCount(); i++ {
			v := it.ts.SPO.NumAtPos(i)
			if v != 0 {
				objs = append(objs, v)
			}
			if it.ts.SPO.BitAtPos(i) {
				break
			}
		}
		it.pending = objs
		it.pendingSubject = subject
	}
	o := it.pending[0]
	it.pending = it.pending[1:]
	return layer.Triple{Subject: it.pendingSubject, Predicate: it.predicate, Object: o}, true
}

// ObjectIterator walks every triple mentioning a fixed object, driven
// by o_ps (the packed predicate/subject adjacency list keyed by
// object group) rather than a linear scan of s_p/sp_o.
type ObjectIterator struct {
	object  uint64
	pending []uint64 // packed (predicate, subject) values remaining for object
}

// NewObjectIterator returns an iterator over every triple in ts whose
// object is o. ts.Objects is sorted ascending and holds one entry per
// distinct object, in the same order as ts.OPS's groups, so a single
// NearestIndexForMonotone lookup locates o's group (or reports none).
func NewObjectIterator(ts *layer.TripleSet, o uint64) *ObjectIterator {
	it := &ObjectIterator{object: o}
	n := ts.Objects.Len()
	if n == 0 {
		return it
	}
	idx := ts.Objects.NearestIndexForMonotone(o-1) + 1
	if idx >= n || ts.Objects.Get(idx) != o {
		return it
	}
	start := ts.OPS.OffsetFor(uint64(idx) + 1)
	if start < 0 {
		return it
	}
	var packed []uint64
	for i := start; i < ts.OPS.RightCount(); i++ {
		v := ts.OPS.NumAtPos(i)
		if v != 0 {
			packed = append(packed, v)
		}
		if ts.OPS.BitAtPos(i) {
			break
		}
	}
	it.pending = packed
	return it
}

// Next returns the next (s, p, object) triple, or ok == false once
// exhausted.
func (it *ObjectIterator) Next() (layer.Triple, bool) {
	if len(it.pending) == 0 {
		return layer.Triple{}, false
	}
	v := it.pending[0]
	it.pending = it.pending[1:]
	predicate, subject := layer.UnpackPS(v)
	return layer.Triple{Subject: subject, Predicate: predicate, Object: it.object}, true
}
