package store

import (
	"path/filepath"
	"sync"

	"github.com/regulumdb/ferricstore/internal/sieve"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
	"github.com/regulumdb/ferricstore/pkg/vfile"
)

// DiskLayerStore is a LayerStore-shaped registry backed by one replay
// log file per layer under dir, named by the layer's hex Name. Unlike
// LayerStore, Put durably survives a restart: Get/Resolve load a
// layer's file (and, walking up, its ancestors' files) the first time
// they're needed and cache the reconstructed *layer.Layer in an
// internal/sieve cache, exactly as LayerStore caches its in-memory
// layers.
type DiskLayerStore struct {
	dir string

	mu      sync.Mutex
	cache   *sieve.Sieve[ids.Name, *layer.Layer]
	nextSeq uint64
	seq     map[ids.Name]uint64
}

// NewDiskLayerStore returns a DiskLayerStore rooted at dir. dir is
// created lazily by Put; Get and Resolve never create it.
func NewDiskLayerStore(dir string, cacheCapacity int) *DiskLayerStore {
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultLayerCacheSize
	}
	return &DiskLayerStore{
		dir:   dir,
		cache: sieve.New[ids.Name, *layer.Layer](cacheCapacity, nil),
		seq:   make(map[ids.Name]uint64),
	}
}

// markSeq assigns name the next diagnostic-ordering sequence number if
// it hasn't been assigned one yet in this process's lifetime. Caller
// must hold s.mu.
func (s *DiskLayerStore) markSeq(name ids.Name) {
	if _, seen := s.seq[name]; seen {
		return
	}
	s.nextSeq++
	s.seq[name] = s.nextSeq
}

// CreatedAt reports the order in which name was first observed by this
// DiskLayerStore instance (via Put, or the first Get/Resolve that
// loaded it from disk), or ok=false if name has never been seen. Unlike
// the layer's content-addressed name, this ordering is not persisted
// and resets across a process restart; it exists purely for
// diagnostic reporting (e.g. tsctl inspect).
func (s *DiskLayerStore) CreatedAt(name ids.Name) (seq uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok = s.seq[name]
	return seq, ok
}

func (s *DiskLayerStore) pathFor(name ids.Name) string {
	return filepath.Join(s.dir, name.String()+".layer")
}

// Put persists l under its own name. Putting a Child layer does not
// require its parent to already be on disk at call time, only by the
// time a later Get/Resolve actually needs to load it.
func (s *DiskLayerStore) Put(l *layer.Layer) error {
	if !l.Name().Valid() {
		return storeerr.ErrInvalidCoding
	}
	f := vfile.NewDiskFile(s.pathFor(l.Name()))
	if f.Exists() {
		return storeerr.ErrAlreadyExists
	}
	w, err := f.OpenWriter()
	if err != nil {
		return err
	}
	if err := SaveLayer(w, l); err != nil {
		w.Close()
		return err
	}
	s.mu.Lock()
	s.cache.Add(l.Name(), l)
	s.markSeq(l.Name())
	s.mu.Unlock()
	return nil
}

// Get loads the layer named name, reconstructing its ancestor chain
// from disk as needed, or reports ok=false if no file exists for name.
func (s *DiskLayerStore) Get(name ids.Name) (*layer.Layer, bool) {
	l, err := s.load(name)
	if err != nil {
		return nil, false
	}
	return l, true
}

// MustGet is like Get but returns storeerr.ErrNotFound instead of ok=false.
func (s *DiskLayerStore) MustGet(name ids.Name) (*layer.Layer, error) {
	return s.load(name)
}

func (s *DiskLayerStore) load(name ids.Name) (*layer.Layer, error) {
	if !name.Valid() {
		return nil, storeerr.ErrNotFound
	}
	s.mu.Lock()
	if l, ok := s.cache.Get(name); ok {
		s.markSeq(name)
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	f := vfile.NewDiskFile(s.pathFor(name))
	if !f.Exists() {
		return nil, storeerr.ErrNotFound
	}
	l, err := LoadLayer(f, name, s.load)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache.Add(name, l)
	s.markSeq(name)
	s.mu.Unlock()
	return l, nil
}

// Resolve returns name's ancestor chain, base layer first, loading
// whatever isn't already cached from disk.
func (s *DiskLayerStore) Resolve(name ids.Name) ([]*layer.Layer, error) {
	leaf, err := s.load(name)
	if err != nil {
		return nil, err
	}
	var chain []*layer.Layer
	for l := leaf; l != nil; l = l.Parent() {
		chain = append(chain, l)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
