/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sorted

import (
	"errors"
	"sync"

	"github.com/google/btree"

	"github.com/regulumdb/ferricstore/pkg/config"
)

// NewMemoryKeyValue returns a KeyValue implementation that's backed only
// by memory. It's mostly useful for tests and development.
func NewMemoryKeyValue() KeyValue {
	return &memKeys{tree: btree.New(32)}
}

// memItem is a btree.Item ordering key/value pairs by key.
type memItem struct {
	key, value string
}

func (a memItem) Less(than btree.Item) bool {
	return a.key < than.(memItem).key
}

// memKeys is a naive in-memory implementation of KeyValue for test & development
// purposes only.
type memKeys struct {
	mu   sync.Mutex // guards tree
	tree *btree.BTree
}

func (mk *memKeys) Get(key string) (string, error) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	item := mk.tree.Get(memItem{key: key})
	if item == nil {
		return "", ErrNotFound
	}
	return item.(memItem).value, nil
}

// Find returns an iterator over a snapshot of every key in [start,
// end), taken under the lock so concurrent Set/Delete calls can't
// corrupt an in-progress scan of the underlying tree.
func (mk *memKeys) Find(start, end string) Iterator {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	var items []memItem
	mk.tree.AscendGreaterOrEqual(memItem{key: start}, func(it btree.Item) bool {
		item := it.(memItem)
		if end != "" && item.key >= end {
			return false
		}
		items = append(items, item)
		return true
	})
	return &memIter{items: items, pos: -1}
}

func (mk *memKeys) Set(key, value string) error {
	if err := CheckSizes(key, value); err != nil {
		return err
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.tree.ReplaceOrInsert(memItem{key: key, value: value})
	return nil
}

func (mk *memKeys) Delete(key string) error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.tree.Delete(memItem{key: key})
	return nil
}

func (mk *memKeys) BeginBatch() BatchMutation {
	return &batch{}
}

func (mk *memKeys) CommitBatch(bm BatchMutation) error {
	b, ok := bm.(*batch)
	if !ok {
		return errors.New("sorted: invalid batch type; not an instance returned by BeginBatch")
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	for _, m := range b.Mutations() {
		if m.IsDelete() {
			mk.tree.Delete(memItem{key: m.Key()})
			continue
		}
		if err := CheckSizes(m.Key(), m.Value()); err != nil {
			return err
		}
		mk.tree.ReplaceOrInsert(memItem{key: m.Key(), value: m.Value()})
	}
	return nil
}

func (mk *memKeys) Close() error { return nil }

// memIter iterates a fixed snapshot of key/value pairs taken by Find.
type memIter struct {
	items []memItem
	pos   int
}

func (it *memIter) Next() bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *memIter) Key() string        { return it.items[it.pos].key }
func (it *memIter) KeyBytes() []byte   { return []byte(it.items[it.pos].key) }
func (it *memIter) Value() string      { return it.items[it.pos].value }
func (it *memIter) ValueBytes() []byte { return []byte(it.items[it.pos].value) }
func (it *memIter) Close() error       { return nil }

func init() {
	RegisterKeyValue("memory", func(cfg config.Obj) (KeyValue, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewMemoryKeyValue(), nil
	})
}
