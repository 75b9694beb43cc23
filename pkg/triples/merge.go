package triples

import "github.com/regulumdb/ferricstore/pkg/layer"

// Stack returns the chain of layers from leaf (most recent, index 0)
// up through every ancestor to the base (last element), by walking
// Parent() pointers.
func Stack(leaf *layer.Layer) []*layer.Layer {
	var out []*layer.Layer
	for l := leaf; l != nil; l = l.Parent() {
		out = append(out, l)
	}
	return out
}

// MergeIterator is the cross-layer merge iterator of §4.6: a k-way
// merge over every layer's addition stream, with precedence
// cancellation against every more-recent layer's removal stream, so
// it yields exactly the stack's effective triples in ascending order.
type MergeIterator struct {
	posIters []*SubjectIterator
	negIters []*SubjectIterator // nil entry for a layer with no removals (a base)
	pos      []*Peeker[layer.Triple]
	neg      []*Peeker[layer.Triple]
}

// NewMergeIterator builds a MergeIterator over stack, ordered
// leaf-first as returned by Stack.
func NewMergeIterator(stack []*layer.Layer) *MergeIterator {
	it := &MergeIterator{
		posIters: make([]*SubjectIterator, len(stack)),
		negIters: make([]*SubjectIterator, len(stack)),
		pos:      make([]*Peeker[layer.Triple], len(stack)),
		neg:      make([]*Peeker[layer.Triple], len(stack)),
	}
	for i, l := range stack {
		it.posIters[i] = NewSubjectIterator(l.Additions)
		it.pos[i] = NewPeeker[layer.Triple](it.posIters[i])
		if l.Removals != nil {
			it.negIters[i] = NewSubjectIterator(l.Removals)
			it.neg[i] = NewPeeker[layer.Triple](it.negIters[i])
		}
	}
	return it
}

// Seek positions every per-layer iterator so the merge resumes at the
// first effective triple with subject >= s.
func (it *MergeIterator) Seek(s uint64) {
	for i, si := range it.posIters {
		si.Seek(s)
		it.pos[i] = NewPeeker[layer.Triple](si)
	}
	for i, si := range it.negIters {
		if si == nil {
			continue
		}
		si.Seek(s)
		it.neg[i] = NewPeeker[layer.Triple](si)
	}
}

// SeekSubjectPredicate positions every per-layer iterator at (s, p),
// per SubjectIterator.SeekSubjectPredicate.
func (it *MergeIterator) SeekSubjectPredicate(s, p uint64) {
	for i, si := range it.posIters {
		si.SeekSubjectPredicate(s, p)
		it.pos[i] = NewPeeker[layer.Triple](si)
	}
	for i, si := range it.negIters {
		if si == nil {
			continue
		}
		si.SeekSubjectPredicate(s, p)
		it.neg[i] = NewPeeker[layer.Triple](si)
	}
}

// Next returns the next effective triple of the stack, applying
// precedence cancellation: the lowest-valued pending addition across
// every layer is emitted unless some more-recent layer has removed
// it, in which case both mentions are consumed and the search
// restarts.
func (it *MergeIterator) Next() (layer.Triple, bool) {
	for {
		minIdx := -1
		var min layer.Triple
		for i, p := range it.pos {
			v, ok := p.Peek()
			if !ok {
				continue
			}
			if minIdx == -1 || v.Less(min) {
				min = v
				minIdx = i
			}
		}
		if minIdx == -1 {
			return layer.Triple{}, false
		}

		cancelled := false
		for j := 0; j < minIdx; j++ {
			if it.neg[j] == nil {
				continue
			}
			v, ok := it.neg[j].Peek()
			if ok && v == min {
				it.neg[j].Take()
				cancelled = true
				break
			}
		}
		it.pos[minIdx].Take()
		if cancelled {
			continue
		}
		return min, true
	}
}
