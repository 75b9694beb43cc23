package store

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/sorted"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
	"github.com/regulumdb/ferricstore/pkg/strutil"
)

// Label is a named mutable pointer: a monotonically increasing
// version and the layer (if any) it currently points to.
type Label struct {
	Name     string
	Version  uint64
	Layer    ids.Name
	HasLayer bool
}

// LabelStore is a name -> Label registry with compare-and-swap updates,
// backed by a sorted.KeyValue so it can run in-memory (pkg/sorted's
// "memory" backend) or on disk (pkg/store/leveldbkv). The store's own
// mutex linearizes every label's CAS against every other's; spec only
// requires linearizability per label name, so this is a deliberately
// coarser, still-correct serialization.
type LabelStore struct {
	mu sync.Mutex
	kv sorted.KeyValue
}

// NewLabelStore returns a LabelStore persisting its labels to kv.
func NewLabelStore(kv sorted.KeyValue) *LabelStore {
	return &LabelStore{kv: kv}
}

// Create registers a new label at version 0 pointing at no layer. It
// returns storeerr.ErrAlreadyExists if name is already registered.
func (s *LabelStore) Create(name string) (Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok, err := s.getLocked(name); err != nil {
		return Label{}, err
	} else if ok {
		return Label{}, storeerr.ErrAlreadyExists
	}
	lbl := Label{Name: name}
	if err := s.kv.Set(name, encodeLabel(lbl)); err != nil {
		return Label{}, err
	}
	return lbl, nil
}

// Get returns the current state of label name, or ok == false if it
// has never been created (or has been deleted).
func (s *LabelStore) Get(name string) (Label, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(name)
}

func (s *LabelStore) getLocked(name string) (Label, bool, error) {
	v, err := s.kv.Get(name)
	if errors.Is(err, sorted.ErrNotFound) {
		return Label{}, false, nil
	}
	if err != nil {
		return Label{}, false, err
	}
	lbl, err := decodeLabel(name, v)
	if err != nil {
		return Label{}, false, err
	}
	return lbl, true, nil
}

// SetLabel attempts to advance current to point at newLayer (or, if
// hasLayer is false, to point at no layer). It succeeds iff current's
// version matches the store's current version for that label name —
// compare-and-swap. On success it returns the updated label and true.
// On a version mismatch it returns the zero Label and false, with a
// nil error: per spec, a CAS loss is reported as "no update," not an
// error.
func (s *LabelStore) SetLabel(current Label, newLayer ids.Name, hasLayer bool) (Label, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok, err := s.getLocked(current.Name)
	if err != nil {
		return Label{}, false, err
	}
	if !ok || stored.Version != current.Version {
		return Label{}, false, nil
	}
	updated := Label{Name: current.Name, Version: current.Version + 1, Layer: newLayer, HasLayer: hasLayer}
	if err := s.kv.Set(current.Name, encodeLabel(updated)); err != nil {
		return Label{}, false, err
	}
	return updated, true, nil
}

// Delete removes name from the store entirely.
func (s *LabelStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(name)
}

// encodeLabel renders a label as "<version>|<layer-hex-or-empty>" for
// storage in a sorted.KeyValue, whose values are opaque strings.
func encodeLabel(l Label) string {
	layerStr := ""
	if l.HasLayer {
		layerStr = l.Layer.String()
	}
	return strconv.FormatUint(l.Version, 10) + "|" + layerStr
}

func decodeLabel(name, v string) (Label, error) {
	parts := strutil.AppendSplitN(nil, v, "|", 2)
	if len(parts) != 2 {
		return Label{}, fmt.Errorf("store: %w: malformed label record %q", storeerr.ErrInvalidCoding, v)
	}
	version, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Label{}, fmt.Errorf("store: %w: malformed label version %q", storeerr.ErrInvalidCoding, parts[0])
	}
	lbl := Label{Name: name, Version: version}
	if parts[1] != "" {
		n, ok := ids.Parse(parts[1])
		if !ok {
			return Label{}, fmt.Errorf("store: %w: malformed label layer name %q", storeerr.ErrInvalidCoding, parts[1])
		}
		lbl.Layer = n
		lbl.HasLayer = true
	}
	return lbl, nil
}
