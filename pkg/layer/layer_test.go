package layer

import (
	"reflect"
	"sort"
	"testing"

	"github.com/regulumdb/ferricstore/pkg/ids"
)

func sortedTriples(ts []Triple) []Triple {
	out := append([]Triple(nil), ts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func buildBaseLayer(t *testing.T, triples []Triple) *Layer {
	t.Helper()
	b := NewBuilder(ids.MustParse("0000000000000000000000000000000000000001"), Base, nil)
	if err := b.AddNode([]byte("n1")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddPredicate([]byte("p1")); err != nil {
		t.Fatal(err)
	}
	b.FinalizeDictionaries()
	for _, tr := range triples {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatalf("AddAddition(%+v): %v", tr, err)
		}
	}
	return b.Finalize()
}

func TestBaseLayerRoundTripsTriples(t *testing.T) {
	input := sortedTriples([]Triple{
		{1, 1, 10}, {1, 1, 11}, {1, 2, 20},
		{2, 1, 10}, {2, 3, 30}, {2, 3, 31},
		{5, 1, 50},
	})
	l := buildBaseLayer(t, input)

	if l.Kind() != Base {
		t.Fatalf("Kind() = %v, want Base", l.Kind())
	}
	if l.Additions.NumTriples() != len(input) {
		t.Fatalf("NumTriples() = %d, want %d", l.Additions.NumTriples(), len(input))
	}
	got := l.Additions.Triples()
	if !reflect.DeepEqual(got, input) {
		t.Fatalf("Triples() = %+v, want %+v", got, input)
	}
	if l.Removals != nil {
		t.Fatal("base layer has non-nil Removals")
	}
}

func TestChildLayerAdditionsAndRemovals(t *testing.T) {
	parentTriples := sortedTriples([]Triple{{1, 1, 1}, {2, 2, 2}})
	parent := buildBaseLayer(t, parentTriples)

	b := NewBuilder(ids.MustParse("0000000000000000000000000000000000000002"), Child, parent)
	b.FinalizeDictionaries()
	additions := sortedTriples([]Triple{{3, 3, 3}, {3, 4, 4}})
	removals := sortedTriples([]Triple{{1, 1, 1}})
	for _, tr := range additions {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatal(err)
		}
	}
	for _, tr := range removals {
		if err := b.AddRemoval(tr.Subject, tr.Predicate, tr.Object); err != nil {
			t.Fatal(err)
		}
	}
	child := b.Finalize()

	if child.Kind() != Child {
		t.Fatalf("Kind() = %v, want Child", child.Kind())
	}
	if child.Parent() != parent {
		t.Fatal("Parent() mismatch")
	}
	if got := child.Additions.Triples(); !reflect.DeepEqual(got, additions) {
		t.Fatalf("Additions.Triples() = %+v, want %+v", got, additions)
	}
	if got := child.Removals.Triples(); !reflect.DeepEqual(got, removals) {
		t.Fatalf("Removals.Triples() = %+v, want %+v", got, removals)
	}
}

func TestAddAdditionOutOfOrderRejected(t *testing.T) {
	b := NewBuilder(ids.MustParse("0000000000000000000000000000000000000003"), Base, nil)
	b.FinalizeDictionaries()
	if err := b.AddAddition(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.AddAddition(1, 1, 1); err == nil {
		t.Fatal("AddAddition out of order succeeded, want error")
	}
	if err := b.AddAddition(2, 1, 1); err == nil {
		t.Fatal("AddAddition duplicate succeeded, want error")
	}
}

func TestAddRemovalOnBaseRejected(t *testing.T) {
	b := NewBuilder(ids.MustParse("0000000000000000000000000000000000000004"), Base, nil)
	b.FinalizeDictionaries()
	if err := b.AddRemoval(1, 1, 1); err == nil {
		t.Fatal("AddRemoval on base builder succeeded, want error")
	}
}

func TestEmptyBaseLayer(t *testing.T) {
	l := buildBaseLayer(t, nil)
	if l.Additions.NumTriples() != 0 {
		t.Fatalf("NumTriples() = %d, want 0", l.Additions.NumTriples())
	}
	if got := l.Additions.Triples(); got != nil {
		t.Fatalf("Triples() = %v, want nil", got)
	}
}
