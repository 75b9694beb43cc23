package main

import (
	"path/filepath"

	"github.com/regulumdb/ferricstore/pkg/sorted"
	"github.com/regulumdb/ferricstore/pkg/sorted/buffer"
	"github.com/regulumdb/ferricstore/pkg/store"
	"github.com/regulumdb/ferricstore/pkg/store/leveldbkv"
)

// labelBufferBytes bounds how much label CAS traffic accumulates
// in-memory before it's flushed to the on-disk leveldb backing store.
// Label records are tiny (a version and a layer name), so this is
// sized generously relative to how often SetLabel actually gets
// called; it exists so a burst of CAS retries doesn't write through to
// leveldb on every attempt.
const labelBufferBytes = 1 << 20

// profile is an opened store directory: a DiskLayerStore rooted at
// <dir>/layers, and a LabelStore backed by a leveldb database at
// <dir>/labels.
type profile struct {
	Layers *store.DiskLayerStore
	Labels *store.LabelStore
	kv     sorted.KeyValue
}

// openProfile opens (creating if absent) the store profile rooted at
// dir. The label database is created here, by goleveldb's OpenFile;
// the layer directory is created lazily by the first DiskLayerStore.Put.
func openProfile(dir string) (*profile, error) {
	backing, err := leveldbkv.Open(filepath.Join(dir, "labels"))
	if err != nil {
		return nil, err
	}
	// SetLabel is a read-modify-write CAS: buffer.New's Get reads
	// through to backing on a buffer miss, so every CAS still sees the
	// latest write, while ordinary Set traffic lands in the in-memory
	// buffer until it's flushed (by size, or on Close).
	kv := buffer.New(sorted.NewMemoryKeyValue(), backing, labelBufferBytes)
	return &profile{
		Layers: store.NewDiskLayerStore(filepath.Join(dir, "layers"), 0),
		Labels: store.NewLabelStore(kv),
		kv:     kv,
	}, nil
}

func (p *profile) Close() error {
	return p.kv.Close()
}
