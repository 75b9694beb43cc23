package bitindex

import "testing"

func naiveRank1(bits []bool, i int) int {
	if i > len(bits) {
		i = len(bits)
	}
	n := 0
	for j := 0; j < i; j++ {
		if bits[j] {
			n++
		}
	}
	return n
}

func TestRankSelectRoundTrip(t *testing.T) {
	// Span several superblocks (wordsPerSuperblock=8, 64 bits/word) with
	// an irregular pattern so block boundaries get exercised.
	const n = 1200
	pattern := make([]bool, n)
	for i := 0; i < n; i++ {
		pattern[i] = (i%7 == 0) || (i%31 == 3)
	}

	b := NewBuilder(n)
	for _, set := range pattern {
		b.Append(set)
	}
	idx := b.Build()

	if idx.Len() != n {
		t.Fatalf("Len() = %d, want %d", idx.Len(), n)
	}

	for i := 0; i <= n; i++ {
		want := naiveRank1(pattern, i)
		if got := idx.Rank1(i); got != want {
			t.Fatalf("Rank1(%d) = %d, want %d", i, got, want)
		}
	}

	total := idx.CountOnes()
	if want := naiveRank1(pattern, n); total != want {
		t.Fatalf("CountOnes() = %d, want %d", total, want)
	}

	var ones []int
	for i, set := range pattern {
		if set {
			ones = append(ones, i)
		}
	}
	if total != len(ones) {
		t.Fatalf("CountOnes() = %d, want %d", total, len(ones))
	}
	for k, want := range ones {
		if got := idx.Select1(k); got != want {
			t.Fatalf("Select1(%d) = %d, want %d", k, got, want)
		}
	}
	if got := idx.Select1(len(ones)); got != -1 {
		t.Fatalf("Select1(%d) (out of range) = %d, want -1", len(ones), got)
	}
	if got := idx.Select1(-1); got != -1 {
		t.Fatalf("Select1(-1) = %d, want -1", got)
	}
}

func TestBitAndSet(t *testing.T) {
	b := NewBuilder(0)
	b.Set(5, true)
	b.Set(70, true)
	idx := b.Build()

	if idx.Len() != 71 {
		t.Fatalf("Len() = %d, want 71", idx.Len())
	}
	for i := 0; i < idx.Len(); i++ {
		want := i == 5 || i == 70
		if got := idx.Bit(i); got != want {
			t.Fatalf("Bit(%d) = %v, want %v", i, got, want)
		}
	}
	if got := idx.CountOnes(); got != 2 {
		t.Fatalf("CountOnes() = %d, want 2", got)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := NewBuilder(0).Build()
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", idx.Len())
	}
	if idx.CountOnes() != 0 {
		t.Fatalf("CountOnes() = %d, want 0", idx.CountOnes())
	}
	if got := idx.Rank1(0); got != 0 {
		t.Fatalf("Rank1(0) = %d, want 0", got)
	}
	if got := idx.Select1(0); got != -1 {
		t.Fatalf("Select1(0) = %d, want -1", got)
	}
}
