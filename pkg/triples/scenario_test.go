package triples

import (
	"reflect"
	"testing"

	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
)

// These tests reproduce the concrete numbered scenarios from the
// testable-properties section verbatim, using the same triple ids a
// reader would get by running them through the dictionary-order
// numbering given there: nodes aaaaa=1, baa=2, bbbbb=3, ccccc=4,
// mooo=5; predicates abcde=1, fghij=2, klmno=3, lll=4; values (which
// follow node ids in the combined object space) chicken=6, cow=7,
// dog=8, pig=9, zebra=10.

func scenarioBase(t *testing.T, name string, adds []layer.Triple) *layer.Layer {
	t.Helper()
	b := layer.NewBuilder(ids.MustParse(name), layer.Base, nil)
	b.FinalizeDictionaries()
	for _, tr := range adds {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddAddition(%+v): %v", tr, err)
		}
	}
	return b.Finalize()
}

func scenarioChild(t *testing.T, name string, parent *layer.Layer, adds, rems []layer.Triple) *layer.Layer {
	t.Helper()
	b := layer.NewBuilder(ids.MustParse(name), layer.Child, parent)
	b.FinalizeDictionaries()
	for _, tr := range adds {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddAddition(%+v): %v", tr, err)
		}
	}
	for _, tr := range rems {
		if err := b.AddRemoval(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddRemoval(%+v): %v", tr, err)
		}
	}
	return b.Finalize()
}

// Scenario 1: build a base, query triples_p(3) and triples_o(6).
func TestScenario1BasePredicateAndObjectQueries(t *testing.T) {
	base := scenarioBase(t, "0000000000000000000000000000000000000101", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 1, Object: 3},
		{Subject: 2, Predicate: 3, Object: 6},
		{Subject: 3, Predicate: 2, Object: 5},
		{Subject: 3, Predicate: 3, Object: 6},
		{Subject: 4, Predicate: 3, Object: 6},
	})

	var gotP []layer.Triple
	pit := NewPredicateIterator(base.Additions, 3)
	for {
		tr, ok := pit.Next()
		if !ok {
			break
		}
		gotP = append(gotP, tr)
	}
	wantP := []layer.Triple{
		{Subject: 2, Predicate: 3, Object: 6},
		{Subject: 3, Predicate: 3, Object: 6},
		{Subject: 4, Predicate: 3, Object: 6},
	}
	if !reflect.DeepEqual(gotP, wantP) {
		t.Fatalf("triples_p(3) = %+v, want %+v", gotP, wantP)
	}

	var gotO []layer.Triple
	oit := NewObjectIterator(base.Additions, 6)
	for {
		tr, ok := oit.Next()
		if !ok {
			break
		}
		gotO = append(gotO, tr)
	}
	wantO := []layer.Triple{
		{Subject: 2, Predicate: 3, Object: 6},
		{Subject: 3, Predicate: 3, Object: 6},
		{Subject: 4, Predicate: 3, Object: 6},
	}
	if !reflect.DeepEqual(gotO, wantO) {
		t.Fatalf("triples_o(6) = %+v, want %+v", gotO, wantO)
	}
}

// Scenario 2: add a child layer with its own additions/removals and
// query the merged triples() view.
func TestScenario2ChildMergedView(t *testing.T) {
	base := scenarioBase(t, "0000000000000000000000000000000000000102", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 1, Object: 3},
		{Subject: 2, Predicate: 3, Object: 6},
		{Subject: 3, Predicate: 2, Object: 5},
		{Subject: 3, Predicate: 3, Object: 6},
		{Subject: 4, Predicate: 3, Object: 6},
	})
	child := scenarioChild(t, "0000000000000000000000000000000000000103", base,
		[]layer.Triple{
			{Subject: 1, Predicate: 2, Object: 3},
			{Subject: 3, Predicate: 3, Object: 4},
			{Subject: 3, Predicate: 5, Object: 6},
		},
		[]layer.Triple{
			{Subject: 1, Predicate: 1, Object: 1},
			{Subject: 2, Predicate: 1, Object: 3},
			{Subject: 2, Predicate: 3, Object: 6},
			{Subject: 4, Predicate: 3, Object: 6},
		},
	)

	got := drainMerge(NewMergeIterator(Stack(child)))
	want := []layer.Triple{
		{Subject: 1, Predicate: 2, Object: 3},
		{Subject: 2, Predicate: 1, Object: 1},
		{Subject: 3, Predicate: 2, Object: 5},
		{Subject: 3, Predicate: 3, Object: 4},
		{Subject: 3, Predicate: 3, Object: 6},
		{Subject: 3, Predicate: 5, Object: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("triples() = %+v, want %+v", got, want)
	}
}

// Scenario 3: four additional child layers toggling (duck,hates,cow)
// <-> (duck,likes,cow) across removal+addition pairs; the final
// triples_s(duck) must contain exactly (duck,likes,cow) and
// (duck,says,quack). The base carries only the says/quack triple, so
// the first of the four child layers establishes hates (addition with
// no matching removal) and the remaining three alternate the pair,
// landing on likes after an odd number of net flips. Node/predicate/
// value ids are assigned locally here since this scenario introduces
// vocabulary the §8 numbering table doesn't cover (duck, hates, likes,
// says, quack, cow).
func TestScenario3RepeatedToggleLeavesFinalStateOnly(t *testing.T) {
	const (
		duck  = 1
		hates = 1
		likes = 2
		says  = 3
		cow   = 10
		quack = 11
	)
	base := scenarioBase(t, "0000000000000000000000000000000000000104", []layer.Triple{
		{Subject: duck, Predicate: says, Object: quack},
	})
	toggle1 := scenarioChild(t, "0000000000000000000000000000000000000105", base,
		[]layer.Triple{{Subject: duck, Predicate: hates, Object: cow}},
		nil,
	)
	toggle2 := scenarioChild(t, "0000000000000000000000000000000000000106", toggle1,
		[]layer.Triple{{Subject: duck, Predicate: likes, Object: cow}},
		[]layer.Triple{{Subject: duck, Predicate: hates, Object: cow}},
	)
	toggle3 := scenarioChild(t, "0000000000000000000000000000000000000107", toggle2,
		[]layer.Triple{{Subject: duck, Predicate: hates, Object: cow}},
		[]layer.Triple{{Subject: duck, Predicate: likes, Object: cow}},
	)
	toggle4 := scenarioChild(t, "0000000000000000000000000000000000000108", toggle3,
		[]layer.Triple{{Subject: duck, Predicate: likes, Object: cow}},
		[]layer.Triple{{Subject: duck, Predicate: hates, Object: cow}},
	)

	it := NewMergeIterator(Stack(toggle4))
	it.Seek(duck)
	var got []layer.Triple
	for {
		tr, ok := it.Next()
		if !ok || tr.Subject != duck {
			break
		}
		got = append(got, tr)
	}
	want := []layer.Triple{
		{Subject: duck, Predicate: likes, Object: cow},
		{Subject: duck, Predicate: says, Object: quack},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("triples_s(duck) = %+v, want %+v", got, want)
	}
}

// Scenario 4: seeking internal_triple_additions().seek_subject(4) on a
// layer whose subjects are {1,3,5} returns triples from subject 5
// onward (nearest-greater semantics).
func TestScenario4SeekSubjectNearestGreater(t *testing.T) {
	base := scenarioBase(t, "0000000000000000000000000000000000000110", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 3, Predicate: 1, Object: 1},
		{Subject: 5, Predicate: 1, Object: 1},
	})

	it := NewSubjectIterator(base.Additions)
	it.Seek(4)
	got := drainSubject(it)
	want := []layer.Triple{
		{Subject: 5, Predicate: 1, Object: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("seek_subject(4) = %+v, want %+v", got, want)
	}
}
