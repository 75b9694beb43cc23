// Package leveldbkv provides the on-disk sorted.KeyValue backend used
// to persist a LabelStore's records across process restarts.
package leveldbkv

import (
	"github.com/regulumdb/ferricstore/pkg/sorted"
	"github.com/regulumdb/ferricstore/pkg/sorted/leveldb"
)

// Open returns a sorted.KeyValue backed by a goleveldb database file
// at path, creating it if it doesn't already exist.
func Open(path string) (sorted.KeyValue, error) {
	return leveldb.NewStorage(path)
}
