package triples

// Source is anything that can be drained one value at a time, the
// shape every iterator in this package implements.
type Source[T any] interface {
	Next() (T, bool)
}

// Peeker adds a one-element lookahead buffer to a Source, letting
// callers inspect the next value without consuming it. This is the
// peek/take pattern the cross-layer merge iterator needs to compare
// the head of every per-layer stream before deciding which one to
// advance.
type Peeker[T any] struct {
	src  Source[T]
	buf  T
	has  bool
	done bool
}

// NewPeeker wraps src in a Peeker.
func NewPeeker[T any](src Source[T]) *Peeker[T] {
	return &Peeker[T]{src: src}
}

// Peek returns the next value without consuming it. ok is false once
// the underlying source is exhausted.
func (p *Peeker[T]) Peek() (T, bool) {
	if !p.has && !p.done {
		v, ok := p.src.Next()
		if !ok {
			p.done = true
		} else {
			p.buf = v
			p.has = true
		}
	}
	return p.buf, p.has
}

// Take consumes and returns the next value, equivalent to Peek
// followed by discarding the buffered value.
func (p *Peeker[T]) Take() (T, bool) {
	v, ok := p.Peek()
	if ok {
		p.has = false
	}
	return v, ok
}
