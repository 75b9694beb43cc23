// Package rollup implements §4.7's rollup engine: flattening a layer
// stack into a new base (full rollup) or a new child rooted at some
// ancestor (delta rollup), by merging dictionaries across the
// flattened layers, building an id-map permutation for the merge, and
// re-streaming the stack's effective triples through the cross-layer
// merge (or change) iterator into a fresh builder.
package rollup

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/regulumdb/ferricstore/pkg/dict"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/triples"
)

// mergedDictionaries holds the three dictionary merge results, built
// concurrently since the node, predicate, and value merges are
// entirely independent of each other.
type mergedDictionaries struct {
	nodes      *dict.Dictionary
	nodePerm   []uint64
	predicates *dict.Dictionary
	predPerm   []uint64
	values     *dict.TypedDictionary
	valuePerm  []uint64
}

func mergeDictionariesConcurrently(nodeDicts, predDicts []*dict.Dictionary, nodeOffsets, predOffsets []uint64, typedDicts []*dict.TypedDictionary, valueOffsets []uint64) *mergedDictionaries {
	var out mergedDictionaries
	var g errgroup.Group
	g.Go(func() error {
		out.nodes, out.nodePerm = mergeStringDictionaries(nodeDicts, nodeOffsets)
		return nil
	})
	g.Go(func() error {
		out.predicates, out.predPerm = mergeStringDictionaries(predDicts, predOffsets)
		return nil
	})
	g.Go(func() error {
		out.values, out.valuePerm = mergeTypedDictionaries(typedDicts, valueOffsets)
		return nil
	})
	_ = g.Wait() // none of the three goroutines above can return an error
	return &out
}

// baseToLeaf returns the chain from leaf up to the base, in
// base-first order (the reverse of triples.Stack).
func baseToLeaf(leaf *layer.Layer) []*layer.Layer {
	s := triples.Stack(leaf)
	out := make([]*layer.Layer, len(s))
	for i, l := range s {
		out[len(s)-1-i] = l
	}
	return out
}

// offsetsFor returns, for each layer in layers (base-first), the
// cumulative count (via count) of every strictly earlier layer: the
// base offset at which that layer's own local ids begin in the
// whole-chain-consistent numbering every triple in the stack uses.
func offsetsFor(layers []*layer.Layer, count func(*layer.Layer) uint64) []uint64 {
	offsets := make([]uint64, len(layers))
	var running uint64
	for i, l := range layers {
		offsets[i] = running
		running += count(l)
	}
	return offsets
}

func nodeCount(l *layer.Layer) uint64      { return uint64(l.NodeDict.NumEntries()) }
func predicateCount(l *layer.Layer) uint64 { return uint64(l.PredicateDict.NumEntries()) }
func valueCount(l *layer.Layer) uint64     { return l.ValueDict.NumEntries() }

// buildRemap turns a merge permutation into an id remap function. Old
// ids at or below passthroughLimit belong to a layer this rollup
// isn't rewriting (an ancestor a delta rollup is rooted at) and pass
// through unchanged; everything else is offset by passthroughLimit
// plus its assigned position in the merged dictionary.
func buildRemap(perm []uint64, passthroughLimit uint64) func(uint64) uint64 {
	return func(old uint64) uint64 {
		if old <= passthroughLimit {
			return old
		}
		if old < 1 || old > uint64(len(perm)) || perm[old-1] == 0 {
			return old
		}
		return passthroughLimit + perm[old-1]
	}
}

// buildObjectRemap composes a node remap and a value remap into a
// remap over the combined object-id space (nodes first, then
// values), per §3's "object ids span nodes ∪ values".
func buildObjectRemap(nodeRemap func(uint64) uint64, valueRemap func(uint64) uint64, oldTotalNodes, newTotalNodes uint64) func(uint64) uint64 {
	return func(old uint64) uint64 {
		if old <= oldTotalNodes {
			return nodeRemap(old)
		}
		oldValueID := old - oldTotalNodes
		newValueID := valueRemap(oldValueID)
		return newTotalNodes + newValueID
	}
}

// feedDictionaries replays a merged set of dictionaries into b's
// phase-1 builder calls, in the order the merge assigned ids.
func feedDictionaries(b *layer.Builder, nodes, predicates *dict.Dictionary, values *dict.TypedDictionary) error {
	if it := nodes.Iter(); it != nil {
		for {
			_, e, ok, err := it.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := b.AddNode(e); err != nil {
				return err
			}
		}
	}
	if it := predicates.Iter(); it != nil {
		for {
			_, e, ok, err := it.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := b.AddPredicate(e); err != nil {
				return err
			}
		}
	}
	for _, tag := range dict.AllTags() {
		for _, e := range values.EntriesForTag(tag) {
			if err := b.AddValue(tag, e); err != nil {
				return err
			}
		}
	}
	b.FinalizeDictionaries()
	return nil
}

// remapTriples applies remap functions to every triple src yields,
// sorting the result since a remap through a dictionary merge does
// not generally preserve the original ascending order.
func remapTriples(src interface{ Next() (layer.Triple, bool) }, remapSubject, remapPredicate, remapObject func(uint64) uint64) []layer.Triple {
	var out []layer.Triple
	for {
		tr, ok := src.Next()
		if !ok {
			break
		}
		out = append(out, layer.Triple{
			Subject:   remapSubject(tr.Subject),
			Predicate: remapPredicate(tr.Predicate),
			Object:    remapObject(tr.Object),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// FullRollup flattens leaf's entire ancestor chain into a single new
// base layer with the same effective triples, per §4.7 "Full rollup
// to a base".
func FullRollup(name ids.Name, leaf *layer.Layer) (*layer.Layer, error) {
	layers := baseToLeaf(leaf)

	nodeOffsets := offsetsFor(layers, nodeCount)
	predOffsets := offsetsFor(layers, predicateCount)
	valueOffsets := offsetsFor(layers, valueCount)

	nodeDicts := make([]*dict.Dictionary, len(layers))
	predDicts := make([]*dict.Dictionary, len(layers))
	typedDicts := make([]*dict.TypedDictionary, len(layers))
	for i, l := range layers {
		nodeDicts[i] = l.NodeDict
		predDicts[i] = l.PredicateDict
		typedDicts[i] = l.ValueDict
	}

	merged0 := mergeDictionariesConcurrently(nodeDicts, predDicts, nodeOffsets, predOffsets, typedDicts, valueOffsets)

	oldTotalNodes := nodeOffsets[len(nodeOffsets)-1] + nodeCount(layers[len(layers)-1])
	newTotalNodes := uint64(merged0.nodes.NumEntries())

	remapNode := buildRemap(merged0.nodePerm, 0)
	remapPredicate := buildRemap(merged0.predPerm, 0)
	remapValue := buildRemap(merged0.valuePerm, 0)
	remapObject := buildObjectRemap(remapNode, remapValue, oldTotalNodes, newTotalNodes)

	merged := remapTriples(triples.NewMergeIterator(triples.Stack(leaf)), remapNode, remapPredicate, remapObject)

	b := layer.NewBuilder(name, layer.Base, nil)
	if err := feedDictionaries(b, merged0.nodes, merged0.predicates, merged0.values); err != nil {
		return nil, fmt.Errorf("rollup: feeding merged dictionaries: %w", err)
	}
	for _, tr := range merged {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			return nil, fmt.Errorf("rollup: replaying merged triples: %w", err)
		}
	}
	return b.Finalize(), nil
}

// DeltaRollup flattens every layer strictly above upto into a single
// new child layer rooted at upto, per §4.7 "Delta rollup to an
// ancestor upto". upto must be an ancestor of leaf (reachable by
// following Parent() from leaf); it is returned unchanged as the new
// layer's parent.
func DeltaRollup(name ids.Name, leaf *layer.Layer, upto *layer.Layer) (*layer.Layer, error) {
	full := baseToLeaf(leaf)
	uptoIdx := -1
	for i, l := range full {
		if l == upto {
			uptoIdx = i
			break
		}
	}
	if uptoIdx == -1 {
		return nil, fmt.Errorf("rollup: upto is not an ancestor of leaf")
	}
	restricted := full[uptoIdx+1:]

	nodeOffsets := offsetsFor(full, nodeCount)
	predOffsets := offsetsFor(full, predicateCount)
	valueOffsets := offsetsFor(full, valueCount)

	uptoNodeCount := nodeOffsets[uptoIdx] + nodeCount(upto)
	uptoPredCount := predOffsets[uptoIdx] + predicateCount(upto)
	uptoValueCount := valueOffsets[uptoIdx] + valueCount(upto)

	nodeDicts := make([]*dict.Dictionary, len(restricted))
	predDicts := make([]*dict.Dictionary, len(restricted))
	typedDicts := make([]*dict.TypedDictionary, len(restricted))
	restrictedNodeOffsets := make([]uint64, len(restricted))
	restrictedPredOffsets := make([]uint64, len(restricted))
	restrictedValueOffsets := make([]uint64, len(restricted))
	for i, l := range restricted {
		nodeDicts[i] = l.NodeDict
		predDicts[i] = l.PredicateDict
		typedDicts[i] = l.ValueDict
		restrictedNodeOffsets[i] = nodeOffsets[uptoIdx+1+i]
		restrictedPredOffsets[i] = predOffsets[uptoIdx+1+i]
		restrictedValueOffsets[i] = valueOffsets[uptoIdx+1+i]
	}

	mergedDicts := mergeDictionariesConcurrently(nodeDicts, predDicts, restrictedNodeOffsets, restrictedPredOffsets, typedDicts, restrictedValueOffsets)

	oldTotalNodes := nodeOffsets[len(full)-1] + nodeCount(full[len(full)-1])
	newTotalNodes := uptoNodeCount + uint64(mergedDicts.nodes.NumEntries())

	remapNode := buildRemap(mergedDicts.nodePerm, uptoNodeCount)
	remapPredicate := buildRemap(mergedDicts.predPerm, uptoPredCount)
	remapValue := buildRemap(mergedDicts.valuePerm, uptoValueCount)
	remapObject := buildObjectRemap(remapNode, remapValue, oldTotalNodes, newTotalNodes)

	restrictedLeafFirst := make([]*layer.Layer, len(restricted))
	for i, l := range restricted {
		restrictedLeafFirst[len(restricted)-1-i] = l
	}
	changeIt := triples.NewChangeIterator(restrictedLeafFirst)
	var additions, removals []layer.Triple
	for {
		change, tr, ok := changeIt.Next()
		if !ok {
			break
		}
		remapped := layer.Triple{
			Subject:   remapNode(tr.Subject),
			Predicate: remapPredicate(tr.Predicate),
			Object:    remapObject(tr.Object),
		}
		if change == triples.Addition {
			additions = append(additions, remapped)
		} else {
			removals = append(removals, remapped)
		}
	}
	sort.Slice(additions, func(i, j int) bool { return additions[i].Less(additions[j]) })
	sort.Slice(removals, func(i, j int) bool { return removals[i].Less(removals[j]) })

	b := layer.NewBuilder(name, layer.Child, upto)
	if err := feedDictionaries(b, mergedDicts.nodes, mergedDicts.predicates, mergedDicts.values); err != nil {
		return nil, fmt.Errorf("rollup: feeding merged dictionaries: %w", err)
	}
	for _, tr := range additions {
		if err := b.AddAddition(tr.Subject, tr.Predicate, tr.Object); err != nil {
			return nil, fmt.Errorf("rollup: replaying merged additions: %w", err)
		}
	}
	for _, tr := range removals {
		if err := b.AddRemoval(tr.Subject, tr.Predicate, tr.Object); err != nil {
			return nil, fmt.Errorf("rollup: replaying merged removals: %w", err)
		}
	}
	return b.Finalize(), nil
}

// SafeUptoBound returns the highest ancestor of leaf such that every
// layer from leaf down to (and including) it satisfies inMemory, per
// §4.7's "Imprecise delta rollup": the bound an imprecise rollup may
// safely use without consulting any disk-persisted layer. Returns nil
// if leaf itself doesn't satisfy inMemory.
func SafeUptoBound(leaf *layer.Layer, inMemory func(*layer.Layer) bool) *layer.Layer {
	var last *layer.Layer
	for l := leaf; l != nil; l = l.Parent() {
		if !inMemory(l) {
			break
		}
		last = l
	}
	return last
}

// ImpreciseDeltaRollup runs DeltaRollup against the ancestor
// SafeUptoBound selects, rather than a caller-chosen upto. It is
// mechanically identical to DeltaRollup once that bound is known: the
// "imprecise" distinction is about which ancestor is safe to stop at
// when some of the chain may only be reachable on disk through
// pkg/store's layer cache, not about the rollup algorithm itself.
func ImpreciseDeltaRollup(name ids.Name, leaf *layer.Layer, inMemory func(*layer.Layer) bool) (*layer.Layer, error) {
	bound := SafeUptoBound(leaf, inMemory)
	if bound == nil {
		return nil, fmt.Errorf("rollup: leaf is not itself in memory")
	}
	if bound == leaf {
		return leaf, nil
	}
	return DeltaRollup(name, leaf, bound)
}
