// Package layer implements the layer file set of §3/§4.5: an
// immutable, content-addressed collection of dictionaries, id-maps,
// and succinct triple indices, built in two phases (dictionaries,
// then sorted triples) and frozen on Finalize.
package layer

import (
	"fmt"
	"sort"

	"github.com/regulumdb/ferricstore/pkg/adjacency"
	"github.com/regulumdb/ferricstore/pkg/dict"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/logarray"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
	"github.com/regulumdb/ferricstore/pkg/wavelet"
)

// Kind distinguishes a base layer, which owns a full triple set, from
// a child layer, which holds additions and removals relative to its
// parent.
type Kind int

const (
	Base Kind = iota
	Child
)

func (k Kind) String() string {
	if k == Base {
		return "base"
	}
	return "child"
}

// Triple is a (subject, predicate, object) edge. All three fields are
// strictly positive dictionary or id-map ids.
type Triple struct {
	Subject, Predicate, Object uint64
}

// Less reports whether t sorts strictly before other in the
// canonical (subject, predicate, object) triple order.
func (t Triple) Less(other Triple) bool {
	if t.Subject != other.Subject {
		return t.Subject < other.Subject
	}
	if t.Predicate != other.Predicate {
		return t.Predicate < other.Predicate
	}
	return t.Object < other.Object
}

// TripleSet is the succinct triple representation shared by a base
// layer's sole triple set and each half (additions, removals) of a
// child layer's two triple sets (§4.1's s_p/sp_o/o_ps adjacency
// triples and predicate wavelet tree).
type TripleSet struct {
	SP             *adjacency.List         // s -> distinct predicates, by subject group index
	SPO            *adjacency.List         // (s,p) group index -> objects
	OPS            *adjacency.List         // o -> packed (predicate, subject) pairs, by object group index
	PredicateIndex *wavelet.PredicateIndex // over SP's right-values
	Subjects       *logarray.Array         // group index -> actual subject id (sparse index)
	Objects        *logarray.Array         // group index -> actual object id (sparse index)
}

// NumTriples returns the number of triples represented.
func (ts *TripleSet) NumTriples() int {
	if ts == nil {
		return 0
	}
	return ts.SPO.RightCount()
}

// Triples decodes every triple in the set, in ascending
// (subject, predicate, object) order.
func (ts *TripleSet) Triples() []Triple {
	if ts == nil {
		return nil
	}
	var out []Triple
	numSubjectGroups := ts.SP.LeftCount()
	for sg := 1; sg <= numSubjectGroups; sg++ {
		subject := ts.Subjects.Get(sg - 1)
		spStart := ts.SP.OffsetFor(uint64(sg))
		if spStart < 0 {
			continue
		}
		for pos := spStart; pos < ts.SP.RightCount(); pos++ {
			predicate := ts.SP.NumAtPos(pos)
			spGroupIndex := uint64(pos) + 1 // 1-indexed group index into SPO
			spoStart := ts.SPO.OffsetFor(spGroupIndex)
			if spoStart >= 0 {
				for opos := spoStart; opos < ts.SPO.RightCount(); opos++ {
					obj := ts.SPO.NumAtPos(opos)
					if obj != 0 {
						out = append(out, Triple{Subject: subject, Predicate: predicate, Object: obj})
					}
					if ts.SPO.BitAtPos(opos) {
						break
					}
				}
			}
			if ts.SP.BitAtPos(pos) {
				break
			}
		}
	}
	return out
}

// packPS combines a predicate and subject id into the single packed
// right-value o_ps stores per §6's "adjacency triples" layout; both
// must fit in 32 bits.
func packPS(predicate, subject uint64) uint64 { return predicate<<32 | subject }

// UnpackPS reverses packPS, recovering the predicate and subject a
// TripleSet.OPS right-value packs together. Exported for pkg/triples,
// which drives ObjectIterator directly off OPS.
func UnpackPS(v uint64) (predicate, subject uint64) { return v >> 32, v & 0xffffffff }

// Layer is an immutable base or child layer file set.
type Layer struct {
	name   ids.Name
	kind   Kind
	parent *Layer

	NodeDict      *dict.Dictionary
	PredicateDict *dict.Dictionary
	ValueDict     *dict.TypedDictionary

	NodeIDMap      *wavelet.IDMap
	PredicateIDMap *wavelet.IDMap
	ValueIDMap     *wavelet.IDMap

	Additions *TripleSet
	Removals  *TripleSet // nil for a base layer
}

// Name returns the layer's content-addressed or random 20-byte name.
func (l *Layer) Name() ids.Name { return l.name }

// Kind reports whether the layer is a base or a child.
func (l *Layer) Kind() Kind { return l.kind }

// Parent returns the parent layer, or nil for a base.
func (l *Layer) Parent() *Layer { return l.parent }

// NumNodes returns the number of entries in l's own node dictionary
// (0 if it has none). Per §3, object ids span nodes first, then values.
func (l *Layer) NumNodes() uint64 {
	if l.NodeDict == nil {
		return 0
	}
	return uint64(l.NodeDict.NumEntries())
}

// Builder ingests a layer in two phases: dictionaries, then sorted
// triples (additions for a base; additions and removals for a child).
type Builder struct {
	name   ids.Name
	kind   Kind
	parent *Layer

	nodeBuilder  *dict.Builder
	predBuilder  *dict.Builder
	valueBuilder *dict.TypedBuilder
	dictsDone    bool

	additions    []Triple
	removals     []Triple
	lastAddition *Triple
	lastRemoval  *Triple
}

// NewBuilder returns a Builder for a new layer named name. parent is
// nil for a base layer.
func NewBuilder(name ids.Name, kind Kind, parent *Layer) *Builder {
	if kind == Base && parent != nil {
		panic("layer: a base layer builder cannot have a parent")
	}
	if kind == Child && parent == nil {
		panic("layer: a child layer builder requires a parent")
	}
	return &Builder{
		name:         name,
		kind:         kind,
		parent:       parent,
		nodeBuilder:  dict.NewBuilder(),
		predBuilder:  dict.NewBuilder(),
		valueBuilder: dict.NewTypedBuilder(),
	}
}

// AddNode appends a node dictionary entry; entries must arrive in
// strictly ascending lexical order.
func (b *Builder) AddNode(key []byte) error {
	if b.dictsDone {
		return fmt.Errorf("layer: AddNode called after FinalizeDictionaries")
	}
	return b.nodeBuilder.Add(key)
}

// AddPredicate appends a predicate dictionary entry.
func (b *Builder) AddPredicate(key []byte) error {
	if b.dictsDone {
		return fmt.Errorf("layer: AddPredicate called after FinalizeDictionaries")
	}
	return b.predBuilder.Add(key)
}

// AddValue appends a typed value dictionary entry under tag. Entries
// must be added tag segment by tag segment, per dict.TypedBuilder.
func (b *Builder) AddValue(tag dict.Tag, encoded []byte) error {
	if b.dictsDone {
		return fmt.Errorf("layer: AddValue called after FinalizeDictionaries")
	}
	return b.valueBuilder.Add(tag, encoded)
}

// FinalizeDictionaries closes phase 1. No further Add{Node,Predicate,Value}
// calls are valid afterward.
func (b *Builder) FinalizeDictionaries() {
	b.dictsDone = true
}

// AddAddition appends a triple to the addition stream (a base's only
// stream, or a child's positive stream). Triples must arrive in
// strictly ascending (subject, predicate, object) order.
func (b *Builder) AddAddition(s, p, o uint64) error {
	t := Triple{s, p, o}
	if b.lastAddition != nil && !b.lastAddition.Less(t) {
		return &storeerr.OutOfOrderError{
			Prev: fmt.Sprintf("%+v", *b.lastAddition),
			Got:  fmt.Sprintf("%+v", t),
		}
	}
	b.additions = append(b.additions, t)
	b.lastAddition = &t
	return nil
}

// AddRemoval appends a triple to a child's negative stream. Invalid
// for a base builder.
func (b *Builder) AddRemoval(s, p, o uint64) error {
	if b.kind != Child {
		return fmt.Errorf("layer: AddRemoval is only valid for a child layer")
	}
	t := Triple{s, p, o}
	if b.lastRemoval != nil && !b.lastRemoval.Less(t) {
		return &storeerr.OutOfOrderError{
			Prev: fmt.Sprintf("%+v", *b.lastRemoval),
			Got:  fmt.Sprintf("%+v", t),
		}
	}
	b.removals = append(b.removals, t)
	b.lastRemoval = &t
	return nil
}

// Finalize builds every succinct index (s_p, sp_o, o_ps, the
// predicate wavelet tree) and returns the immutable Layer.
func (b *Builder) Finalize() *Layer {
	l := &Layer{
		name:          b.name,
		kind:          b.kind,
		parent:        b.parent,
		NodeDict:      b.nodeBuilder.Build(),
		PredicateDict: b.predBuilder.Build(),
		ValueDict:     b.valueBuilder.Build(),
		Additions:     buildTripleSet(b.additions),
	}
	if b.kind == Child {
		l.Removals = buildTripleSet(b.removals)
	}
	return l
}

// buildTripleSet groups an ascending-sorted triple list into the
// succinct s_p/sp_o/o_ps representation described in §4.1/§4.5.
func buildTripleSet(triples []Triple) *TripleSet {
	spBuilder := adjacency.NewBuilder(len(triples))
	spoBuilder := adjacency.NewBuilder(len(triples))
	var subjects []uint64
	var predicateAtPos []uint64

	i := 0
	for i < len(triples) {
		s := triples[i].Subject
		subjects = append(subjects, s)
		var predGroup []uint64
		j := i
		for j < len(triples) && triples[j].Subject == s {
			p := triples[j].Predicate
			var objGroup []uint64
			k := j
			for k < len(triples) && triples[k].Subject == s && triples[k].Predicate == p {
				objGroup = append(objGroup, triples[k].Object)
				k++
			}
			spoBuilder.AddGroup(objGroup)
			predGroup = append(predGroup, p)
			predicateAtPos = append(predicateAtPos, p)
			j = k
		}
		spBuilder.AddGroup(predGroup)
		i = j
	}

	var maxPredicate uint64
	for _, p := range predicateAtPos {
		if p > maxPredicate {
			maxPredicate = p
		}
	}

	byObject := append([]Triple(nil), triples...)
	sort.Slice(byObject, func(a, c int) bool {
		if byObject[a].Object != byObject[c].Object {
			return byObject[a].Object < byObject[c].Object
		}
		if byObject[a].Predicate != byObject[c].Predicate {
			return byObject[a].Predicate < byObject[c].Predicate
		}
		return byObject[a].Subject < byObject[c].Subject
	})
	opsBuilder := adjacency.NewBuilder(len(byObject))
	var objects []uint64
	oi := 0
	for oi < len(byObject) {
		o := byObject[oi].Object
		objects = append(objects, o)
		var psGroup []uint64
		oj := oi
		for oj < len(byObject) && byObject[oj].Object == o {
			psGroup = append(psGroup, packPS(byObject[oj].Predicate, byObject[oj].Subject))
			oj++
		}
		opsBuilder.AddGroup(psGroup)
		oi = oj
	}

	subjectsArr := logarray.NewBuilder(len(subjects))
	for _, s := range subjects {
		subjectsArr.Append(s)
	}
	objectsArr := logarray.NewBuilder(len(objects))
	for _, o := range objects {
		objectsArr.Append(o)
	}

	return &TripleSet{
		SP:             spBuilder.Build(),
		SPO:            spoBuilder.Build(),
		OPS:            opsBuilder.Build(),
		PredicateIndex: wavelet.BuildPredicateIndex(predicateAtPos, maxPredicate),
		Subjects:       subjectsArr.Build(),
		Objects:        objectsArr.Build(),
	}
}
