package store

import (
	"reflect"
	"testing"

	"github.com/regulumdb/ferricstore/pkg/dict"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/vfile"
)

func TestSaveLoadLayerRoundTripsBase(t *testing.T) {
	name := ids.MustParse("0000000000000000000000000000000000000081")
	b := layer.NewBuilder(name, layer.Base, nil)
	if err := b.AddNode([]byte("alice")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddNode([]byte("bob")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddPredicate([]byte("knows")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddValue(dict.TagString, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := b.AddValue(dict.TagU32, []byte{0, 0, 0, 7}); err != nil {
		t.Fatal(err)
	}
	b.FinalizeDictionaries()
	if err := b.AddAddition(1, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := b.AddAddition(1, 1, 3); err != nil {
		t.Fatal(err)
	}
	original := b.Finalize()

	f := vfile.NewMemFile()
	w, err := f.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if err := SaveLayer(w, original); err != nil {
		t.Fatalf("SaveLayer: %v", err)
	}

	loaded, err := LoadLayer(f, name, func(ids.Name) (*layer.Layer, error) {
		t.Fatal("resolveParent called for a base layer")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("LoadLayer: %v", err)
	}

	if loaded.NodeDict.NumEntries() != original.NodeDict.NumEntries() {
		t.Fatalf("NodeDict.NumEntries() = %d, want %d", loaded.NodeDict.NumEntries(), original.NodeDict.NumEntries())
	}
	for i := 1; i <= original.NodeDict.NumEntries(); i++ {
		want, err := original.NodeDict.Entry(uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		got, err := loaded.NodeDict.Entry(uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(want) {
			t.Fatalf("NodeDict.Entry(%d) = %q, want %q", i, got, want)
		}
	}

	if loaded.ValueDict.NumEntries() != original.ValueDict.NumEntries() {
		t.Fatalf("ValueDict.NumEntries() = %d, want %d", loaded.ValueDict.NumEntries(), original.ValueDict.NumEntries())
	}

	wantAdd := original.Additions.Triples()
	gotAdd := loaded.Additions.Triples()
	if !reflect.DeepEqual(gotAdd, wantAdd) {
		t.Fatalf("Additions.Triples() = %+v, want %+v", gotAdd, wantAdd)
	}
}

func TestSaveLoadLayerRoundTripsChildWithRemovals(t *testing.T) {
	baseName := ids.MustParse("0000000000000000000000000000000000000082")
	bb := layer.NewBuilder(baseName, layer.Base, nil)
	if err := bb.AddNode([]byte("alice")); err != nil {
		t.Fatal(err)
	}
	if err := bb.AddNode([]byte("bob")); err != nil {
		t.Fatal(err)
	}
	if err := bb.AddPredicate([]byte("knows")); err != nil {
		t.Fatal(err)
	}
	bb.FinalizeDictionaries()
	if err := bb.AddAddition(1, 1, 2); err != nil {
		t.Fatal(err)
	}
	base := bb.Finalize()

	childName := ids.MustParse("0000000000000000000000000000000000000083")
	cb := layer.NewBuilder(childName, layer.Child, base)
	cb.FinalizeDictionaries()
	if err := cb.AddAddition(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := cb.AddRemoval(1, 1, 2); err != nil {
		t.Fatal(err)
	}
	original := cb.Finalize()

	f := vfile.NewMemFile()
	w, err := f.OpenWriter()
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if err := SaveLayer(w, original); err != nil {
		t.Fatalf("SaveLayer: %v", err)
	}

	loaded, err := LoadLayer(f, childName, func(got ids.Name) (*layer.Layer, error) {
		if got != baseName {
			t.Fatalf("resolveParent called with %v, want %v", got, baseName)
		}
		return base, nil
	})
	if err != nil {
		t.Fatalf("LoadLayer: %v", err)
	}
	if loaded.Parent() != base {
		t.Fatalf("Parent() = %v, want base", loaded.Parent())
	}
	if !reflect.DeepEqual(loaded.Additions.Triples(), original.Additions.Triples()) {
		t.Fatalf("Additions mismatch: got %+v, want %+v", loaded.Additions.Triples(), original.Additions.Triples())
	}
	if !reflect.DeepEqual(loaded.Removals.Triples(), original.Removals.Triples()) {
		t.Fatalf("Removals mismatch: got %+v, want %+v", loaded.Removals.Triples(), original.Removals.Triples())
	}
}
