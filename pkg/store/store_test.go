package store

import (
	"testing"

	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/sorted"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
)

func buildLayer(t *testing.T, name string, parent *layer.Layer) *layer.Layer {
	t.Helper()
	kind := layer.Base
	if parent != nil {
		kind = layer.Child
	}
	b := layer.NewBuilder(ids.MustParse(name), kind, parent)
	b.FinalizeDictionaries()
	return b.Finalize()
}

func TestLayerStorePutGet(t *testing.T) {
	s := NewLayerStore(0)
	base := buildLayer(t, "0000000000000000000000000000000000000061", nil)
	if err := s.Put(base); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get(base.Name())
	if !ok || got != base {
		t.Fatalf("Get = %v, %v; want %v, true", got, ok, base)
	}

	unknown := ids.MustParse("0000000000000000000000000000000000000062")
	if _, ok := s.Get(unknown); ok {
		t.Fatalf("Get(unknown) reported ok; want false")
	}
	if _, err := s.MustGet(unknown); err != storeerr.ErrNotFound {
		t.Fatalf("MustGet(unknown) = %v, want ErrNotFound", err)
	}
}

func TestLayerStoreCreatedAtOrdersByFirstPut(t *testing.T) {
	s := NewLayerStore(0)
	a := buildLayer(t, "0000000000000000000000000000000000000071", nil)
	b := buildLayer(t, "0000000000000000000000000000000000000072", nil)

	if err := s.Put(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(b); err != nil {
		t.Fatal(err)
	}
	seqA, ok := s.CreatedAt(a.Name())
	if !ok || seqA != 1 {
		t.Fatalf("CreatedAt(a) = %d, %v; want 1, true", seqA, ok)
	}
	seqB, ok := s.CreatedAt(b.Name())
	if !ok || seqB != 2 {
		t.Fatalf("CreatedAt(b) = %d, %v; want 2, true", seqB, ok)
	}

	// Re-putting a does not bump its sequence number.
	if err := s.Put(a); err != nil {
		t.Fatal(err)
	}
	if seqA2, _ := s.CreatedAt(a.Name()); seqA2 != seqA {
		t.Fatalf("CreatedAt(a) after re-Put = %d, want unchanged %d", seqA2, seqA)
	}

	if _, ok := s.CreatedAt(ids.MustParse("0000000000000000000000000000000000000099")); ok {
		t.Fatalf("CreatedAt(unknown) reported ok; want false")
	}
}

func TestLayerStoreResolveParentChain(t *testing.T) {
	s := NewLayerStore(0)
	base := buildLayer(t, "0000000000000000000000000000000000000063", nil)
	child := buildLayer(t, "0000000000000000000000000000000000000064", base)
	leaf := buildLayer(t, "0000000000000000000000000000000000000065", child)

	if err := s.Put(base); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(child); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(leaf); err != nil {
		t.Fatal(err)
	}

	chain, err := s.Resolve(leaf.Name())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []*layer.Layer{base, child, leaf}
	if len(chain) != len(want) {
		t.Fatalf("Resolve chain length = %d, want %d", len(chain), len(want))
	}
	for i, l := range want {
		if chain[i] != l {
			t.Fatalf("Resolve chain[%d] = %v, want %v", i, chain[i], l)
		}
	}
}

func TestLayerStoreResolveMissingAncestor(t *testing.T) {
	s := NewLayerStore(0)
	base := buildLayer(t, "0000000000000000000000000000000000000066", nil)
	child := buildLayer(t, "0000000000000000000000000000000000000067", base)

	// child is put, but its parent (base) never was: resolving should
	// fail rather than silently walking the in-memory Parent() pointer.
	if err := s.Put(child); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Resolve(child.Name()); err != storeerr.ErrNotFound {
		t.Fatalf("Resolve with missing ancestor = %v, want ErrNotFound", err)
	}
}

// TestLabelCASScenario reproduces spec.md's concrete label CAS
// scenario: create "foo" at version 0; set_label(foo_v0, L1) succeeds
// to v1; set_label(foo_v0, L2) fails, since v0 is stale; set_label
// (foo_v1, L2) succeeds to v2.
func TestLabelCASScenario(t *testing.T) {
	ls := NewLabelStore(sorted.NewMemoryKeyValue())

	fooV0, err := ls.Create("foo")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fooV0.Version != 0 || fooV0.HasLayer {
		t.Fatalf("Create = %+v, want version 0 with no layer", fooV0)
	}

	l1 := ids.MustParse("0000000000000000000000000000000000000071")
	l2 := ids.MustParse("0000000000000000000000000000000000000072")

	fooV1, ok, err := ls.SetLabel(fooV0, l1, true)
	if err != nil {
		t.Fatalf("SetLabel(v0, L1): %v", err)
	}
	if !ok || fooV1.Version != 1 || fooV1.Layer != l1 {
		t.Fatalf("SetLabel(v0, L1) = %+v, %v; want version 1 pointing at L1", fooV1, ok)
	}

	if _, ok, err := ls.SetLabel(fooV0, l2, true); err != nil {
		t.Fatalf("SetLabel(stale v0, L2): %v", err)
	} else if ok {
		t.Fatalf("SetLabel(stale v0, L2) succeeded; want CAS failure")
	}

	fooV2, ok, err := ls.SetLabel(fooV1, l2, true)
	if err != nil {
		t.Fatalf("SetLabel(v1, L2): %v", err)
	}
	if !ok || fooV2.Version != 2 || fooV2.Layer != l2 {
		t.Fatalf("SetLabel(v1, L2) = %+v, %v; want version 2 pointing at L2", fooV2, ok)
	}
}

func TestLabelStoreCreateDuplicate(t *testing.T) {
	ls := NewLabelStore(sorted.NewMemoryKeyValue())
	if _, err := ls.Create("bar"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ls.Create("bar"); err != storeerr.ErrAlreadyExists {
		t.Fatalf("second Create = %v, want ErrAlreadyExists", err)
	}
}

func TestLabelStoreDelete(t *testing.T) {
	ls := NewLabelStore(sorted.NewMemoryKeyValue())
	if _, err := ls.Create("baz"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ls.Delete("baz"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, err := ls.Get("baz"); err != nil || ok {
		t.Fatalf("Get after Delete = ok=%v, err=%v; want ok=false", ok, err)
	}
	// Re-creating after a delete is allowed.
	if _, err := ls.Create("baz"); err != nil {
		t.Fatalf("Create after Delete: %v", err)
	}
}
