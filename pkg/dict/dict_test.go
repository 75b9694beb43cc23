package dict

import (
	"bytes"
	"testing"

	"github.com/regulumdb/ferricstore/pkg/constants"
)

func buildDict(t *testing.T, words []string) *Dictionary {
	t.Helper()
	b := NewBuilder()
	for _, w := range words {
		if err := b.Add([]byte(w)); err != nil {
			t.Fatalf("Add(%q): %v", w, err)
		}
	}
	return b.Build()
}

var sampleWords = []string{
	"alpha", "alphabet", "banana", "band", "bandana", "car", "carbon",
	"cargo", "dog", "dogma", "elephant", "elf", "fox", "giraffe", "hippo",
	"hyena", "iguana", "jackal", "kangaroo", "llama",
}

func TestEntryRoundTrip(t *testing.T) {
	d := buildDict(t, sampleWords)
	if d.NumEntries() != len(sampleWords) {
		t.Fatalf("NumEntries() = %d, want %d", d.NumEntries(), len(sampleWords))
	}
	for i, w := range sampleWords {
		got, err := d.Entry(uint64(i + 1))
		if err != nil {
			t.Fatalf("Entry(%d): %v", i+1, err)
		}
		if string(got) != w {
			t.Fatalf("Entry(%d) = %q, want %q", i+1, got, w)
		}
	}
}

func TestIDFoundClosestNotFound(t *testing.T) {
	d := buildDict(t, sampleWords)

	for i, w := range sampleWords {
		lk, err := d.ID([]byte(w))
		if err != nil {
			t.Fatalf("ID(%q): %v", w, err)
		}
		if lk.Kind != Found || lk.ID != uint64(i+1) {
			t.Fatalf("ID(%q) = %+v, want Found(%d)", w, lk, i+1)
		}
	}

	lk, err := d.ID([]byte("aardvark"))
	if err != nil {
		t.Fatal(err)
	}
	if lk.Kind != NotFound {
		t.Fatalf("ID(aardvark) = %+v, want NotFound", lk)
	}

	lk, err = d.ID([]byte("bandsaw"))
	if err != nil {
		t.Fatal(err)
	}
	if lk.Kind != Closest || lk.ID != 5 {
		t.Fatalf("ID(bandsaw) = %+v, want Closest(5)", lk)
	}

	lk, err = d.ID([]byte("zebra"))
	if err != nil {
		t.Fatal(err)
	}
	if lk.Kind != Closest || lk.ID != uint64(len(sampleWords)) {
		t.Fatalf("ID(zebra) = %+v, want Closest(%d)", lk, len(sampleWords))
	}
}

func TestIteratorWalksAllEntries(t *testing.T) {
	d := buildDict(t, sampleWords)
	it := d.Iter()
	var got []string
	for {
		id, entry, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		if id != uint64(len(got)+1) {
			t.Fatalf("Next returned id %d out of sequence", id)
		}
		got = append(got, string(entry))
	}
	if len(got) != len(sampleWords) {
		t.Fatalf("iterator yielded %d entries, want %d", len(got), len(sampleWords))
	}
	for i, w := range sampleWords {
		if got[i] != w {
			t.Fatalf("entry %d = %q, want %q", i, got[i], w)
		}
	}
}

func TestIteratorSeekTo(t *testing.T) {
	d := buildDict(t, sampleWords)
	it := d.Iter()
	it.SeekTo(9)
	id, entry, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next after SeekTo(9): ok=%v err=%v", ok, err)
	}
	if id != 9 || string(entry) != sampleWords[8] {
		t.Fatalf("Next after SeekTo(9) = (%d, %q), want (9, %q)", id, entry, sampleWords[8])
	}
}

func TestAddOutOfOrderRejected(t *testing.T) {
	b := NewBuilder()
	if err := b.Add([]byte("banana")); err != nil {
		t.Fatal(err)
	}
	if err := b.Add([]byte("apple")); err == nil {
		t.Fatal("Add of out-of-order entry succeeded, want error")
	}
	if err := b.Add([]byte("banana")); err == nil {
		t.Fatal("Add of duplicate entry succeeded, want error")
	}
}

func TestSingleEntryDictionary(t *testing.T) {
	d := buildDict(t, []string{"only"})
	got, err := d.Entry(1)
	if err != nil || string(got) != "only" {
		t.Fatalf("Entry(1) = %q, %v, want \"only\", nil", got, err)
	}
	lk, err := d.ID([]byte("only"))
	if err != nil || lk.Kind != Found || lk.ID != 1 {
		t.Fatalf("ID(only) = %+v, %v", lk, err)
	}
}

func TestEmptyDictionary(t *testing.T) {
	d := NewBuilder().Build()
	if d.NumEntries() != 0 {
		t.Fatalf("NumEntries() = %d, want 0", d.NumEntries())
	}
	lk, err := d.ID([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if lk.Kind != NotFound {
		t.Fatalf("ID on empty dict = %+v, want NotFound", lk)
	}
}

func TestPartialLastBlock(t *testing.T) {
	// 20 words over BlockSize=8 leaves a partial last block (4 entries).
	d := buildDict(t, sampleWords)
	if d.NumBlocks() != 3 {
		t.Fatalf("NumBlocks() = %d, want 3", d.NumBlocks())
	}
	last, err := d.Entry(uint64(len(sampleWords)))
	if err != nil || !bytes.Equal(last, []byte(sampleWords[len(sampleWords)-1])) {
		t.Fatalf("last Entry = %q, %v", last, err)
	}
}

func TestEntryString(t *testing.T) {
	d := buildDict(t, sampleWords)
	s, err := d.EntryString(1)
	if err != nil {
		t.Fatal(err)
	}
	if s != sampleWords[0] {
		t.Fatalf("EntryString(1) = %q, want %q", s, sampleWords[0])
	}
}

func TestAddEntryTooLargeRejected(t *testing.T) {
	b := NewBuilder()
	oversized := make([]byte, constants.MaxDictEntrySize+1)
	if err := b.Add(oversized); err == nil {
		t.Fatalf("Add of an oversized entry succeeded, want an error")
	}
}
