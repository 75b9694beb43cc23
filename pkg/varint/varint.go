// Package varint provides the unsigned variable-length integer codec
// used by dictionary block headers (§4.1) and log-array headers (§6).
//
// It is a thin adapter over github.com/multiformats/go-varint, already
// part of the wider dependency graph this module draws its third-party
// stack from, rather than a hand-rolled LEB128 implementation.
package varint

import (
	"io"

	mvarint "github.com/multiformats/go-varint"
)

// MaxLen is the largest number of bytes a single varint can occupy in
// this codec (sized for uint64).
const MaxLen = mvarint.MaxLenUvarint63

// Append appends the varint encoding of v to buf and returns the
// extended slice.
func Append(buf []byte, v uint64) []byte {
	return append(buf, mvarint.ToUvarint(v)...)
}

// Encode returns the varint encoding of v as a newly allocated slice.
func Encode(v uint64) []byte {
	b := make([]byte, mvarint.UvarintSize(v))
	mvarint.PutUvarint(b, v)
	return b
}

// Decode parses a varint from the front of buf, returning the value and
// the number of bytes consumed. n is 0 if buf does not contain a
// complete, valid varint.
func Decode(buf []byte) (v uint64, n int) {
	v, n, err := mvarint.FromUvarint(buf)
	if err != nil {
		return 0, 0
	}
	return v, n
}

// ReadFrom reads a single varint from r.
func ReadFrom(r io.ByteReader) (uint64, error) {
	return mvarint.ReadUvarint(r)
}
