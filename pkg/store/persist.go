package store

import (
	"bufio"
	"fmt"
	"io"

	"github.com/regulumdb/ferricstore/pkg/dict"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/storeerr"
	"github.com/regulumdb/ferricstore/pkg/varint"
	"github.com/regulumdb/ferricstore/pkg/vfile"
)

// segmentEnd marks the end of a TypedDictionary's tag segments in the
// persisted format: no real dict.Tag value collides with it, since
// dict.Tag is small and segmentEnd is chosen above any declared tag.
const segmentEnd = 0xff

// SaveLayer writes l's kind, its parent's name (for a child layer), its
// dictionaries and its triples to w as a self-describing sequence of
// length-prefixed records. Per §1, the succinct on-disk representation
// itself (the byte format dictionaries/adjacency lists/wavelet trees
// would occupy) is out of scope, so this is a replay log rather than those structures'
// bit-for-bit layout — sufficient to reconstruct an equivalent Layer via
// a Builder, which is all a Layer store needs to survive a restart.
func SaveLayer(w vfile.Writer, l *layer.Layer) error {
	bw := bufio.NewWriter(w)

	if l.Kind() == layer.Base {
		if _, err := bw.Write([]byte{byte(layer.Base)}); err != nil {
			return err
		}
	} else {
		if _, err := bw.Write([]byte{byte(layer.Child)}); err != nil {
			return err
		}
		if _, err := bw.Write(l.Parent().Name().Bytes()); err != nil {
			return err
		}
	}

	writeEntries := func(d *dict.Dictionary) error {
		n := 0
		if d != nil {
			n = d.NumEntries()
		}
		if _, err := bw.Write(varint.Encode(uint64(n))); err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		it := d.Iter()
		for {
			_, entry, ok, err := it.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if _, err := bw.Write(varint.Encode(uint64(len(entry)))); err != nil {
				return err
			}
			if _, err := bw.Write(entry); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeEntries(l.NodeDict); err != nil {
		return err
	}
	if err := writeEntries(l.PredicateDict); err != nil {
		return err
	}

	for _, tag := range dict.AllTags() {
		if l.ValueDict == nil {
			break
		}
		entries := l.ValueDict.EntriesForTag(tag)
		if len(entries) == 0 {
			continue
		}
		if _, err := bw.Write([]byte{byte(tag)}); err != nil {
			return err
		}
		if _, err := bw.Write(varint.Encode(uint64(len(entries)))); err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := bw.Write(varint.Encode(uint64(len(e)))); err != nil {
				return err
			}
			if _, err := bw.Write(e); err != nil {
				return err
			}
		}
	}
	if _, err := bw.Write([]byte{segmentEnd}); err != nil {
		return err
	}

	writeTriples := func(ts *layer.TripleSet) error {
		var triples []layer.Triple
		if ts != nil {
			triples = ts.Triples()
		}
		if _, err := bw.Write(varint.Encode(uint64(len(triples)))); err != nil {
			return err
		}
		for _, tr := range triples {
			if _, err := bw.Write(varint.Encode(tr.Subject)); err != nil {
				return err
			}
			if _, err := bw.Write(varint.Encode(tr.Predicate)); err != nil {
				return err
			}
			if _, err := bw.Write(varint.Encode(tr.Object)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := writeTriples(l.Additions); err != nil {
		return err
	}
	if err := writeTriples(l.Removals); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return w.SyncAll()
}

// LoadLayer reconstructs a Layer from a file written by SaveLayer,
// replaying its dictionaries and triples through a fresh Builder for
// name. If the saved layer is a child, resolveParent is called with
// the parent's name to obtain the actual *layer.Layer object to build
// against; it is never called for a base layer.
func LoadLayer(f vfile.File, name ids.Name, resolveParent func(ids.Name) (*layer.Layer, error)) (*layer.Layer, error) {
	rc, err := f.OpenReadFrom(0)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	r := bufio.NewReader(rc)

	readUvarint := func() (uint64, error) {
		return varint.ReadFrom(r)
	}
	readBytes := func() ([]byte, error) {
		n, err := readUvarint()
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("store: %w: reading layer kind: %v", storeerr.ErrInvalidCoding, err)
	}
	kind := layer.Kind(kindByte)
	var parent *layer.Layer
	if kind == layer.Child {
		parentBytes := make([]byte, ids.Size)
		if _, err := io.ReadFull(r, parentBytes); err != nil {
			return nil, fmt.Errorf("store: %w: reading parent name: %v", storeerr.ErrInvalidCoding, err)
		}
		var parentName ids.Name
		if err := parentName.UnmarshalBinary(parentBytes); err != nil {
			return nil, fmt.Errorf("store: %w: %v", storeerr.ErrInvalidCoding, err)
		}
		parent, err = resolveParent(parentName)
		if err != nil {
			return nil, err
		}
	}

	b := layer.NewBuilder(name, kind, parent)

	nNodes, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("store: %w: reading node count: %v", storeerr.ErrInvalidCoding, err)
	}
	for i := uint64(0); i < nNodes; i++ {
		entry, err := readBytes()
		if err != nil {
			return nil, err
		}
		if err := b.AddNode(entry); err != nil {
			return nil, err
		}
	}

	nPreds, err := readUvarint()
	if err != nil {
		return nil, fmt.Errorf("store: %w: reading predicate count: %v", storeerr.ErrInvalidCoding, err)
	}
	for i := uint64(0); i < nPreds; i++ {
		entry, err := readBytes()
		if err != nil {
			return nil, err
		}
		if err := b.AddPredicate(entry); err != nil {
			return nil, err
		}
	}

	for {
		tagByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("store: %w: reading value segment tag: %v", storeerr.ErrInvalidCoding, err)
		}
		if tagByte == segmentEnd {
			break
		}
		tag := dict.Tag(tagByte)
		n, err := readUvarint()
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < n; i++ {
			entry, err := readBytes()
			if err != nil {
				return nil, err
			}
			if err := b.AddValue(tag, entry); err != nil {
				return nil, err
			}
		}
	}
	b.FinalizeDictionaries()

	readTriples := func(add bool) error {
		n, err := readUvarint()
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			s, err := readUvarint()
			if err != nil {
				return err
			}
			p, err := readUvarint()
			if err != nil {
				return err
			}
			o, err := readUvarint()
			if err != nil {
				return err
			}
			if add {
				err = b.AddAddition(s, p, o)
			} else {
				err = b.AddRemoval(s, p, o)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := readTriples(true); err != nil {
		return nil, err
	}
	if err := readTriples(false); err != nil {
		return nil, err
	}

	return b.Finalize(), nil
}
