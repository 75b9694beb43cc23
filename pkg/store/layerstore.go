// Package store implements the layer store and label store boundary:
// a name-addressed registry of layers with cached parent-chain
// resolution, and a linearizable-per-name CAS pointer store for named
// database heads.
package store

import (
	"fmt"
	"sync"

	"github.com/regulumdb/ferricstore/internal/sieve"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
)

// DefaultLayerCacheSize is the default capacity of a LayerStore's
// parent-chain resolution cache.
const DefaultLayerCacheSize = 1024

// LayerStore is a name -> *layer.Layer registry. A put layer is
// retained until explicitly evicted from the cache and dropped from
// the backing map; Get never has to walk a parent chain from disk
// since every Layer already carries its in-memory Parent() pointer,
// but the cache still matters for DiskLayerStore, the disk-backed
// store with the same methods, where resolving an ancestor means
// re-reading its file.
type LayerStore struct {
	mu      sync.RWMutex
	layers  map[ids.Name]*layer.Layer
	cache   *sieve.Sieve[ids.Name, *layer.Layer]
	nextSeq uint64
	seq     map[ids.Name]uint64
}

// NewLayerStore returns a LayerStore whose parent-chain cache holds up
// to cacheCapacity layers. A cacheCapacity <= 0 uses
// DefaultLayerCacheSize.
func NewLayerStore(cacheCapacity int) *LayerStore {
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultLayerCacheSize
	}
	return &LayerStore{
		layers: make(map[ids.Name]*layer.Layer),
		cache:  sieve.New[ids.Name, *layer.Layer](cacheCapacity, nil),
		seq:    make(map[ids.Name]uint64),
	}
}

// Put registers l under its own name. Putting a layer whose parent is
// not itself already in the store is allowed — get_layer's contract is
// about observing writes under a given name, not about enforcing that
// ancestors were put first.
func (s *LayerStore) Put(l *layer.Layer) error {
	if !l.Name().Valid() {
		return fmt.Errorf("store: cannot put a layer with an invalid name")
	}
	s.mu.Lock()
	s.layers[l.Name()] = l
	if _, seen := s.seq[l.Name()]; !seen {
		s.nextSeq++
		s.seq[l.Name()] = s.nextSeq
	}
	s.mu.Unlock()
	s.cache.Add(l.Name(), l)
	return nil
}

// CreatedAt reports the 1-based order in which name was first Put into
// the store, or ok=false if name was never registered. This is purely
// a diagnostic ordering local to this LayerStore instance: it is not
// persisted and has no bearing on any invariant.
func (s *LayerStore) CreatedAt(name ids.Name) (seq uint64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok = s.seq[name]
	return seq, ok
}

// Get resolves name to a layer, or reports ok == false if no layer has
// ever been Put under that name. A hit is served from the cache when
// possible and otherwise populates it, satisfying spec's "parent-chain
// resolution via a pluggable cache."
func (s *LayerStore) Get(name ids.Name) (l *layer.Layer, ok bool) {
	if !name.Valid() {
		return nil, false
	}
	if l, ok := s.cache.Get(name); ok {
		return l, true
	}
	s.mu.RLock()
	l, ok = s.layers[name]
	s.mu.RUnlock()
	if ok {
		s.cache.Add(name, l)
	}
	return l, ok
}

// MustGet is like Get but returns storeerr.ErrNotFound instead of a
// boolean when name isn't registered.
func (s *LayerStore) MustGet(name ids.Name) (*layer.Layer, error) {
	l, ok := s.Get(name)
	if !ok {
		return nil, storeerr.ErrNotFound
	}
	return l, nil
}

// Resolve walks name's parent chain, base-first, requiring every
// layer in the chain to already be registered in the store (not just
// reachable via the in-memory Parent() pointer of the leaf itself).
// This is the shape a disk-backed implementation would need: each
// ancestor is looked up by name rather than followed by pointer.
func (s *LayerStore) Resolve(name ids.Name) ([]*layer.Layer, error) {
	leaf, err := s.MustGet(name)
	if err != nil {
		return nil, err
	}
	var chain []*layer.Layer
	for l := leaf; l != nil; {
		if _, err := s.MustGet(l.Name()); err != nil {
			return nil, err
		}
		chain = append(chain, l)
		l = l.Parent()
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
