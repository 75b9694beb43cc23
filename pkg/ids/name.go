/*
Copyright 2013 The Camlistore Authors.

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

// Package ids defines the 20-byte layer name used to address every
// layer's on-disk file set, and the label store's named pointers.
package ids

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Size is the fixed byte length of a Name: 5 32-bit words.
const Size = 20

// Name is an opaque 20-byte layer (or label) name. It is a value type:
// it supports == and can be used as a map key. The zero Name is invalid;
// test with Valid before using a Name read from untrusted input.
type Name struct {
	set bool
	b   [Size]byte
}

// Valid reports whether n was produced by Parse, NewRandom, FromDigest,
// or UnmarshalBinary, as opposed to being a zero Name.
func (n Name) Valid() bool { return n.set }

// String returns the lowercase hex encoding of n, or "<invalid-name>"
// if n is the zero Name.
func (n Name) String() string {
	if !n.set {
		return "<invalid-name>"
	}
	return hex.EncodeToString(n.b[:])
}

// Words returns n's 5 big-endian 32-bit words, per spec §3 ("Layer
// name = 20 bytes (5 × u32)").
func (n Name) Words() [5]uint32 {
	var w [5]uint32
	for i := range w {
		w[i] = binary.BigEndian.Uint32(n.b[i*4 : i*4+4])
	}
	return w
}

// Bytes returns the raw 20 bytes of n.
func (n Name) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, n.b[:])
	return b
}

// Parse parses s, a 40-character lowercase hex string, as a Name.
func Parse(s string) (Name, bool) {
	if len(s) != Size*2 {
		return Name{}, false
	}
	var b [Size]byte
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return Name{}, false
	}
	return Name{set: true, b: b}, true
}

// MustParse is like Parse but panics on failure.
func MustParse(s string) Name {
	n, ok := Parse(s)
	if !ok {
		panic("ids: invalid name " + s)
	}
	return n
}

// FromDigest derives a content-addressed Name from arbitrary bytes
// (typically the sorted concatenation of a layer's addition/removal
// triples and its dictionary contents), using xxhash as a fast,
// non-cryptographic digest folded to the 20-byte name width.
func FromDigest(content []byte) Name {
	h := xxhash.New()
	h.Write(content)
	sum := h.Sum(nil) // 8 bytes
	var b [Size]byte
	// Repeat the 8-byte digest to fill the 20-byte name, perturbing
	// each repetition so the three copies aren't identical 8-byte runs.
	for i := 0; i < Size; i++ {
		b[i] = sum[i%len(sum)] ^ byte(i/len(sum)*0x9e)
	}
	return Name{set: true, b: b}
}

// NewRandom returns a random Name, for layers with no natural content
// digest to derive from (e.g. an intentionally empty base layer).
func NewRandom() Name {
	u := uuid.New()
	var b [Size]byte
	copy(b[:16], u[:])
	binary.BigEndian.PutUint32(b[16:20], uint32(u[0])<<24|uint32(u[1])<<16|uint32(u[2])<<8|uint32(u[3]))
	return Name{set: true, b: b}
}

func (n Name) MarshalText() ([]byte, error) {
	if !n.set {
		return nil, errors.New("ids: MarshalText on invalid Name")
	}
	return []byte(n.String()), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	got, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("ids: invalid name %q", text)
	}
	*n = got
	return nil
}

func (n Name) MarshalBinary() ([]byte, error) {
	if !n.set {
		return nil, errors.New("ids: MarshalBinary on invalid Name")
	}
	return n.Bytes(), nil
}

func (n *Name) UnmarshalBinary(data []byte) error {
	if n.set {
		return errors.New("ids: UnmarshalBinary into a non-zero Name")
	}
	if len(data) != Size {
		return fmt.Errorf("ids: wrong byte length %d for Name", len(data))
	}
	var b [Size]byte
	copy(b[:], data)
	*n = Name{set: true, b: b}
	return nil
}

func (n Name) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return []byte(`"` + n.String() + `"`), nil
}

func (n *Name) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = Name{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("ids: expecting a JSON string, got %q", data)
	}
	got, ok := Parse(string(data[1 : len(data)-1]))
	if !ok {
		return fmt.Errorf("ids: invalid name %q", data)
	}
	*n = got
	return nil
}
