package dict

import (
	"bytes"
	"math/big"
	"sort"
	"testing"
)

func TestU32OrderPreserving(t *testing.T) {
	vals := []uint32{0, 1, 2, 1000, 1 << 20, 1<<32 - 1}
	checkOrderPreserving(t, vals, func(v uint32) []byte { return EncodeU32(v) })
	for _, v := range vals {
		if got := DecodeU32(EncodeU32(v)); got != v {
			t.Fatalf("DecodeU32(EncodeU32(%d)) = %d", v, got)
		}
	}
}

func TestI32OrderPreserving(t *testing.T) {
	vals := []int32{-2147483648, -1000, -1, 0, 1, 1000, 2147483647}
	checkOrderPreserving(t, vals, func(v int32) []byte { return EncodeI32(v) })
	for _, v := range vals {
		if got := DecodeI32(EncodeI32(v)); got != v {
			t.Fatalf("DecodeI32(EncodeI32(%d)) = %d", v, got)
		}
	}
}

func TestI64OrderPreserving(t *testing.T) {
	vals := []int64{-9223372036854775808, -1000, -1, 0, 1, 1000, 9223372036854775807}
	checkOrderPreserving(t, vals, func(v int64) []byte { return EncodeI64(v) })
	for _, v := range vals {
		if got := DecodeI64(EncodeI64(v)); got != v {
			t.Fatalf("DecodeI64(EncodeI64(%d)) = %d", v, got)
		}
	}
}

func TestF64OrderPreserving(t *testing.T) {
	vals := []float64{-1e300, -1.5, -0.001, 0, 0.001, 1.5, 1e300}
	checkOrderPreserving(t, vals, func(v float64) []byte { return EncodeF64(v) })
	for _, v := range vals {
		if got := DecodeF64(EncodeF64(v)); got != v {
			t.Fatalf("DecodeF64(EncodeF64(%v)) = %v", v, got)
		}
	}
}

func TestF32OrderPreserving(t *testing.T) {
	vals := []float32{-1e30, -1.5, -0.001, 0, 0.001, 1.5, 1e30}
	checkOrderPreserving(t, vals, func(v float32) []byte { return EncodeF32(v) })
}

func checkOrderPreserving[T any](t *testing.T, vals []T, encode func(T) []byte) {
	t.Helper()
	encoded := make([][]byte, len(vals))
	for i, v := range vals {
		encoded[i] = encode(v)
	}
	sorted := append([][]byte(nil), encoded...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })
	for i := range encoded {
		if !bytes.Equal(sorted[i], encoded[i]) {
			t.Fatalf("encoded values not already in sorted order at index %d", i)
		}
	}
}

func TestBigIntOrderPreservingAndRoundTrip(t *testing.T) {
	vals := []*big.Int{
		big.NewInt(-1000000),
		big.NewInt(-5),
		big.NewInt(-1),
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(5),
		big.NewInt(1000000),
	}
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	vals = append(vals, big1)

	encoded := make([][]byte, len(vals))
	for i, v := range vals {
		encoded[i] = EncodeBigInt(v)
	}
	for i := 0; i < len(encoded)-1; i++ {
		if bytes.Compare(encoded[i], encoded[i+1]) >= 0 {
			t.Fatalf("EncodeBigInt(%v) >= EncodeBigInt(%v), want strictly less", vals[i], vals[i+1])
		}
	}
	for i, v := range vals {
		got := DecodeBigInt(encoded[i])
		if got.Cmp(v) != 0 {
			t.Fatalf("DecodeBigInt(EncodeBigInt(%v)) = %v", v, got)
		}
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	cases := []Decimal{
		{Unscaled: big.NewInt(0), Scale: 0},
		{Unscaled: big.NewInt(12345), Scale: 2},   // 123.45
		{Unscaled: big.NewInt(-12345), Scale: 2},  // -123.45
		{Unscaled: big.NewInt(1), Scale: 5},       // 0.00001
		{Unscaled: big.NewInt(-1), Scale: 5},      // -0.00001
		{Unscaled: big.NewInt(100), Scale: 0},     // 100
	}
	for _, c := range cases {
		enc := EncodeDecimal(c)
		got := DecodeDecimal(enc)
		if got.Unscaled.Cmp(c.Unscaled) != 0 {
			t.Fatalf("DecodeDecimal unscaled = %v, want %v (scale %d)", got.Unscaled, c.Unscaled, c.Scale)
		}
	}
}

func TestDecimalOrderPreserving(t *testing.T) {
	// 1.5 < 2.5 < 10 < 100
	vals := []Decimal{
		{Unscaled: big.NewInt(15), Scale: 1},
		{Unscaled: big.NewInt(25), Scale: 1},
		{Unscaled: big.NewInt(10), Scale: 0},
		{Unscaled: big.NewInt(100), Scale: 0},
	}
	encoded := make([][]byte, len(vals))
	for i, v := range vals {
		encoded[i] = EncodeDecimal(v)
	}
	for i := 0; i < len(encoded)-1; i++ {
		if bytes.Compare(encoded[i], encoded[i+1]) >= 0 {
			t.Fatalf("decimal encoding index %d not strictly less than index %d", i, i+1)
		}
	}
}
