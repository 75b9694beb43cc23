package triples

import "github.com/regulumdb/ferricstore/pkg/layer"

// Change classifies a mention yielded by ChangeIterator.
type Change int

const (
	// Addition means the triple's most recent mention, across the
	// layers the iterator was built over, is an addition.
	Addition Change = iota
	// Removal means the triple's most recent mention is a removal.
	Removal
)

func (c Change) String() string {
	if c == Addition {
		return "addition"
	}
	return "removal"
}

// ChangeIterator is the triple-stack change iterator of §4.6/§4.7: it
// walks a restricted run of layers (leaf down to, but not including,
// some ancestor) and yields one (Change, Triple) pair per distinct
// triple mentioned anywhere in that run. All of a triple's mentions
// across the run are consumed together; the most recent one (closest
// to the leaf) decides whether the net effect is an Addition or a
// Removal. This drives delta rollup, which needs exactly the
// additions and removals a new child layer must carry to reproduce
// the run's combined effect relative to the ancestor it is rooted at.
type ChangeIterator struct {
	posIters []*SubjectIterator
	negIters []*SubjectIterator
	pos      []*Peeker[layer.Triple]
	neg      []*Peeker[layer.Triple]
}

// NewChangeIterator builds a ChangeIterator over layers, ordered
// leaf-first. Pass a prefix of Stack (everything above the ancestor
// a delta rollup is rooted at, excluding the ancestor itself).
func NewChangeIterator(layers []*layer.Layer) *ChangeIterator {
	it := &ChangeIterator{
		posIters: make([]*SubjectIterator, len(layers)),
		negIters: make([]*SubjectIterator, len(layers)),
		pos:      make([]*Peeker[layer.Triple], len(layers)),
		neg:      make([]*Peeker[layer.Triple], len(layers)),
	}
	for i, l := range layers {
		it.posIters[i] = NewSubjectIterator(l.Additions)
		it.pos[i] = NewPeeker[layer.Triple](it.posIters[i])
		if l.Removals != nil {
			it.negIters[i] = NewSubjectIterator(l.Removals)
			it.neg[i] = NewPeeker[layer.Triple](it.negIters[i])
		}
	}
	return it
}

// Next returns the next distinct triple mentioned anywhere in the
// run, and whether its net effect is an Addition or a Removal.
func (it *ChangeIterator) Next() (Change, layer.Triple, bool) {
	var min layer.Triple
	haveMin := false
	for _, p := range it.pos {
		if v, ok := p.Peek(); ok && (!haveMin || v.Less(min)) {
			min = v
			haveMin = true
		}
	}
	for _, n := range it.neg {
		if n == nil {
			continue
		}
		if v, ok := n.Peek(); ok && (!haveMin || v.Less(min)) {
			min = v
			haveMin = true
		}
	}
	if !haveMin {
		return 0, layer.Triple{}, false
	}

	change := Removal
	found := false
	for i := range it.pos {
		if v, ok := it.pos[i].Peek(); ok && v == min {
			it.pos[i].Take()
			if !found {
				change = Addition
				found = true
			}
		}
		if it.neg[i] != nil {
			if v, ok := it.neg[i].Peek(); ok && v == min {
				it.neg[i].Take()
				if !found {
					change = Removal
					found = true
				}
			}
		}
	}
	return change, min, true
}
