package triples

import (
	"reflect"
	"testing"

	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
)

func buildBase(t *testing.T, name string, triples []layer.Triple) *layer.Layer {
	t.Helper()
	b := layer.NewBuilder(ids.MustParse(name), layer.Base, nil)
	b.FinalizeDictionaries()
	for _, tr := range triples {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddAddition(%+v): %v", tr, err)
		}
	}
	return b.Finalize()
}

func buildChild(t *testing.T, name string, parent *layer.Layer, additions, removals []layer.Triple) *layer.Layer {
	t.Helper()
	b := layer.NewBuilder(ids.MustParse(name), layer.Child, parent)
	b.FinalizeDictionaries()
	for _, tr := range additions {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddAddition(%+v): %v", tr, err)
		}
	}
	for _, tr := range removals {
		if err := b.AddRemoval(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddRemoval(%+v): %v", tr, err)
		}
	}
	return b.Finalize()
}

func drainSubject(it *SubjectIterator) []layer.Triple {
	var out []layer.Triple
	for {
		tr, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, tr)
	}
}

var fixtureTriples = []layer.Triple{
	{Subject: 1, Predicate: 1, Object: 10},
	{Subject: 1, Predicate: 1, Object: 11},
	{Subject: 1, Predicate: 2, Object: 20},
	{Subject: 2, Predicate: 1, Object: 10},
	{Subject: 2, Predicate: 3, Object: 30},
	{Subject: 2, Predicate: 3, Object: 31},
	{Subject: 5, Predicate: 1, Object: 50},
}

func TestSubjectIteratorWalksAll(t *testing.T) {
	l := buildBase(t, "0000000000000000000000000000000000000011", fixtureTriples)
	it := NewSubjectIterator(l.Additions)
	got := drainSubject(it)
	if !reflect.DeepEqual(got, fixtureTriples) {
		t.Fatalf("got %+v, want %+v", got, fixtureTriples)
	}
}

func TestSubjectIteratorSeek(t *testing.T) {
	l := buildBase(t, "0000000000000000000000000000000000000012", fixtureTriples)

	it := NewSubjectIterator(l.Additions)
	it.Seek(2)
	got := drainSubject(it)
	want := []layer.Triple{
		{Subject: 2, Predicate: 1, Object: 10},
		{Subject: 2, Predicate: 3, Object: 30},
		{Subject: 2, Predicate: 3, Object: 31},
		{Subject: 5, Predicate: 1, Object: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Seek(2): got %+v, want %+v", got, want)
	}

	// Seeking to a subject absent from the set lands on the next one.
	it2 := NewSubjectIterator(l.Additions)
	it2.Seek(3)
	got2 := drainSubject(it2)
	want2 := []layer.Triple{{Subject: 5, Predicate: 1, Object: 50}}
	if !reflect.DeepEqual(got2, want2) {
		t.Fatalf("Seek(3): got %+v, want %+v", got2, want2)
	}

	// Seeking past every subject yields nothing.
	it3 := NewSubjectIterator(l.Additions)
	it3.Seek(6)
	if got3 := drainSubject(it3); got3 != nil {
		t.Fatalf("Seek(6): got %+v, want nil", got3)
	}
}

func TestSubjectIteratorSeekSubjectPredicate(t *testing.T) {
	l := buildBase(t, "0000000000000000000000000000000000000013", fixtureTriples)

	it := NewSubjectIterator(l.Additions)
	it.SeekSubjectPredicate(2, 3)
	got := drainSubject(it)
	want := []layer.Triple{
		{Subject: 2, Predicate: 3, Object: 30},
		{Subject: 2, Predicate: 3, Object: 31},
		{Subject: 5, Predicate: 1, Object: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SeekSubjectPredicate(2,3): got %+v, want %+v", got, want)
	}

	// A predicate absent from subject 1's group lands on the next
	// predicate in that group.
	it2 := NewSubjectIterator(l.Additions)
	it2.SeekSubjectPredicate(1, 2)
	got2, _ := it2.Next()
	if got2 != (layer.Triple{Subject: 1, Predicate: 2, Object: 20}) {
		t.Fatalf("SeekSubjectPredicate(1,2): got %+v", got2)
	}

	// A predicate past every predicate of subject 1's group falls
	// through to the next subject.
	it3 := NewSubjectIterator(l.Additions)
	it3.SeekSubjectPredicate(1, 9)
	got3, _ := it3.Next()
	if got3 != (layer.Triple{Subject: 2, Predicate: 1, Object: 10}) {
		t.Fatalf("SeekSubjectPredicate(1,9): got %+v", got3)
	}
}

func TestPredicateIterator(t *testing.T) {
	l := buildBase(t, "0000000000000000000000000000000000000014", fixtureTriples)

	it := NewPredicateIterator(l.Additions, 1)
	var got []layer.Triple
	for {
		tr, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, tr)
	}
	want := []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 10},
		{Subject: 1, Predicate: 1, Object: 11},
		{Subject: 2, Predicate: 1, Object: 10},
		{Subject: 5, Predicate: 1, Object: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("predicate 1: got %+v, want %+v", got, want)
	}

	it3 := NewPredicateIterator(l.Additions, 3)
	var got3 []layer.Triple
	for {
		tr, ok := it3.Next()
		if !ok {
			break
		}
		got3 = append(got3, tr)
	}
	want3 := []layer.Triple{
		{Subject: 2, Predicate: 3, Object: 30},
		{Subject: 2, Predicate: 3, Object: 31},
	}
	if !reflect.DeepEqual(got3, want3) {
		t.Fatalf("predicate 3: got %+v, want %+v", got3, want3)
	}
}

func TestObjectIterator(t *testing.T) {
	l := buildBase(t, "0000000000000000000000000000000000000015", fixtureTriples)

	it := NewObjectIterator(l.Additions, 10)
	var got []layer.Triple
	for {
		tr, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, tr)
	}
	want := []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 10},
		{Subject: 2, Predicate: 1, Object: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("object 10: got %+v, want %+v", got, want)
	}

	empty := NewObjectIterator(l.Additions, 999)
	if _, ok := empty.Next(); ok {
		t.Fatalf("object 999: expected no triples")
	}
}

func drainMerge(it *MergeIterator) []layer.Triple {
	var out []layer.Triple
	for {
		tr, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, tr)
	}
}

func TestMergeIteratorSingleBaseLayer(t *testing.T) {
	base := buildBase(t, "0000000000000000000000000000000000000021", fixtureTriples)
	it := NewMergeIterator(Stack(base))
	got := drainMerge(it)
	if !reflect.DeepEqual(got, fixtureTriples) {
		t.Fatalf("got %+v, want %+v", got, fixtureTriples)
	}
}

func TestMergeIteratorCancelsRemovedTriple(t *testing.T) {
	base := buildBase(t, "0000000000000000000000000000000000000022", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 2, Object: 2},
		{Subject: 3, Predicate: 3, Object: 3},
	})
	child := buildChild(t, "0000000000000000000000000000000000000023", base,
		[]layer.Triple{{Subject: 4, Predicate: 4, Object: 4}},
		[]layer.Triple{{Subject: 2, Predicate: 2, Object: 2}},
	)

	it := NewMergeIterator(Stack(child))
	got := drainMerge(it)
	want := []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 3, Predicate: 3, Object: 3},
		{Subject: 4, Predicate: 4, Object: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMergeIteratorReaddedTripleWins(t *testing.T) {
	// A triple removed by a child and re-added by a grandchild must
	// survive: the more recent layer's addition is not cancelled by
	// an ancestor's removal, only by a *more recent* layer's removal.
	base := buildBase(t, "0000000000000000000000000000000000000024", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
	})
	mid := buildChild(t, "0000000000000000000000000000000000000025", base,
		nil,
		[]layer.Triple{{Subject: 1, Predicate: 1, Object: 1}},
	)
	leaf := buildChild(t, "0000000000000000000000000000000000000026", mid,
		[]layer.Triple{{Subject: 1, Predicate: 1, Object: 1}},
		nil,
	)

	it := NewMergeIterator(Stack(leaf))
	got := drainMerge(it)
	want := []layer.Triple{{Subject: 1, Predicate: 1, Object: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMergeIteratorSeek(t *testing.T) {
	base := buildBase(t, "0000000000000000000000000000000000000027", fixtureTriples)
	it := NewMergeIterator(Stack(base))
	it.Seek(5)
	got := drainMerge(it)
	want := []layer.Triple{{Subject: 5, Predicate: 1, Object: 50}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func drainChanges(it *ChangeIterator) []struct {
	C Change
	T layer.Triple
} {
	var out []struct {
		C Change
		T layer.Triple
	}
	for {
		c, tr, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, struct {
			C Change
			T layer.Triple
		}{c, tr})
	}
}

func TestChangeIteratorAdditionsAndRemovals(t *testing.T) {
	base := buildBase(t, "0000000000000000000000000000000000000031", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
		{Subject: 2, Predicate: 2, Object: 2},
	})
	child := buildChild(t, "0000000000000000000000000000000000000032", base,
		[]layer.Triple{{Subject: 3, Predicate: 3, Object: 3}},
		[]layer.Triple{{Subject: 1, Predicate: 1, Object: 1}},
	)

	it := NewChangeIterator([]*layer.Layer{child})
	got := drainChanges(it)
	want := []struct {
		C Change
		T layer.Triple
	}{
		{Removal, layer.Triple{Subject: 1, Predicate: 1, Object: 1}},
		{Addition, layer.Triple{Subject: 3, Predicate: 3, Object: 3}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestChangeIteratorMostRecentMentionWins(t *testing.T) {
	base := buildBase(t, "0000000000000000000000000000000000000033", []layer.Triple{
		{Subject: 1, Predicate: 1, Object: 1},
	})
	mid := buildChild(t, "0000000000000000000000000000000000000034", base,
		nil,
		[]layer.Triple{{Subject: 1, Predicate: 1, Object: 1}},
	)
	leaf := buildChild(t, "0000000000000000000000000000000000000035", mid,
		[]layer.Triple{{Subject: 1, Predicate: 1, Object: 1}},
		nil,
	)

	// Restricted to mid and leaf (excluding base): mid removes it,
	// leaf re-adds it. The net effect relative to base is "no change",
	// but leaf is more recent than mid, so the iterator reports the
	// leaf's mention: an Addition.
	it := NewChangeIterator([]*layer.Layer{leaf, mid})
	got := drainChanges(it)
	want := []struct {
		C Change
		T layer.Triple
	}{
		{Addition, layer.Triple{Subject: 1, Predicate: 1, Object: 1}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
