package dict

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/regulumdb/ferricstore/pkg/varint"
)

// EncodeU32 encodes v as 4 big-endian bytes: unsigned integers sort
// correctly under plain bytewise comparison.
func EncodeU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// DecodeU32 is the inverse of EncodeU32.
func DecodeU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// EncodeU64 encodes v as 8 big-endian bytes.
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeU64 is the inverse of EncodeU64.
func DecodeU64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

// EncodeI32 encodes v big-endian with the sign bit flipped, so that
// bytewise comparison matches signed numeric order.
func EncodeI32(v int32) []byte {
	u := uint32(v) ^ 0x8000_0000
	return EncodeU32(u)
}

// DecodeI32 is the inverse of EncodeI32.
func DecodeI32(b []byte) int32 {
	u := DecodeU32(b) ^ 0x8000_0000
	return int32(u)
}

// EncodeI64 encodes v big-endian with the sign bit flipped.
func EncodeI64(v int64) []byte {
	u := uint64(v) ^ 0x8000_0000_0000_0000
	return EncodeU64(u)
}

// DecodeI64 is the inverse of EncodeI64.
func DecodeI64(b []byte) int64 {
	u := DecodeU64(b) ^ 0x8000_0000_0000_0000
	return int64(u)
}

// EncodeF32 maps v to an order-preserving 4-byte encoding: negative
// values have every bit inverted, non-negative values have only the
// sign bit flipped. This makes IEEE-754's bit pattern sort identically
// to numeric order under plain bytewise comparison.
func EncodeF32(v float32) []byte {
	bits := math.Float32bits(v)
	if bits&0x8000_0000 != 0 {
		bits = ^bits
	} else {
		bits ^= 0x8000_0000
	}
	return EncodeU32(bits)
}

// DecodeF32 is the inverse of EncodeF32.
func DecodeF32(b []byte) float32 {
	bits := DecodeU32(b)
	if bits&0x8000_0000 != 0 {
		bits ^= 0x8000_0000
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits)
}

// EncodeF64 is the float64 analogue of EncodeF32.
func EncodeF64(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&0x8000_0000_0000_0000 != 0 {
		bits = ^bits
	} else {
		bits ^= 0x8000_0000_0000_0000
	}
	return EncodeU64(bits)
}

// DecodeF64 is the inverse of EncodeF64.
func DecodeF64(b []byte) float64 {
	bits := DecodeU64(b)
	if bits&0x8000_0000_0000_0000 != 0 {
		bits ^= 0x8000_0000_0000_0000
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// EncodeBigInt encodes v as a sign byte (0 negative, 1 zero, 2
// positive) followed by a varint magnitude length and the big-endian
// magnitude bytes. For negative values both the length bytes and the
// magnitude bytes are stored bit-inverted so that, within the negative
// segment, a bytewise comparison still yields correct (reversed)
// numeric order once the front-coded dictionary sorts the whole
// encoded value ascending: more negative numbers have longer or larger
// magnitudes and therefore must sort first, which the inversion
// achieves.
func EncodeBigInt(v *big.Int) []byte {
	switch v.Sign() {
	case 0:
		return []byte{1}
	case 1:
		mag := v.Bytes()
		buf := []byte{2}
		buf = varint.Append(buf, uint64(len(mag)))
		return append(buf, mag...)
	default:
		mag := new(big.Int).Abs(v).Bytes()
		inverted := make([]byte, len(mag))
		for i, bb := range mag {
			inverted[i] = ^bb
		}
		buf := []byte{0}
		for _, bb := range varint.Encode(uint64(len(mag))) {
			buf = append(buf, ^bb)
		}
		return append(buf, inverted...)
	}
}

// DecodeBigInt is the inverse of EncodeBigInt.
func DecodeBigInt(b []byte) *big.Int {
	if len(b) == 0 {
		return new(big.Int)
	}
	sign := b[0]
	if sign == 1 {
		return new(big.Int)
	}
	hdr := b[1:]
	if sign == 0 {
		hdr = nil
		for _, bb := range b[1:] {
			hdr = append(hdr, ^bb)
			if ^bb&0x80 == 0 {
				break
			}
		}
	}
	length, n := varint.Decode(hdr)
	mag := b[1+n : 1+n+int(length)]
	if sign == 0 {
		inverted := make([]byte, len(mag))
		for i, bb := range mag {
			inverted[i] = ^bb
		}
		return new(big.Int).Neg(new(big.Int).SetBytes(inverted))
	}
	return new(big.Int).SetBytes(mag)
}

// Decimal is an arbitrary-precision fixed-point number: value =
// unscaled * 10^(-scale).
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// EncodeDecimal encodes d as a sign byte, an exponent-adjusted
// varint-encoded magnitude order, and the encoded unscaled magnitude,
// ordered so that bytewise comparison matches decimal numeric order.
// The exponent is encoded before the digits: for same-signed decimals,
// a larger power-of-ten magnitude must sort after a smaller one
// regardless of how many significant digits follow, so the
// (sign-adjusted) decimal exponent of the most significant digit is
// encoded first, then the digit magnitude itself.
func EncodeDecimal(d Decimal) []byte {
	if d.Unscaled.Sign() == 0 {
		return []byte{1}
	}
	mag := new(big.Int).Abs(d.Unscaled)
	numDigits := len(mag.Text(10))
	// Decimal exponent of the leading digit: unscaled has numDigits
	// decimal digits and represents unscaled * 10^-scale, so its
	// magnitude is in [10^(numDigits-1-scale), 10^(numDigits-scale)).
	exp := int64(numDigits) - int64(d.Scale)

	if d.Unscaled.Sign() > 0 {
		buf := []byte{2}
		buf = varint.Append(buf, zigzagEncode(exp))
		magBytes := mag.Bytes()
		buf = varint.Append(buf, uint64(len(magBytes)))
		return append(buf, magBytes...)
	}
	buf := []byte{0}
	// Negative: larger magnitude must sort first among negatives, so
	// invert the exponent ordering and the digit bytes.
	buf = varint.Append(buf, zigzagEncode(-exp))
	magBytes := mag.Bytes()
	inverted := make([]byte, len(magBytes))
	for i, bb := range magBytes {
		inverted[i] = ^bb
	}
	buf = varint.Append(buf, uint64(len(magBytes)))
	return append(buf, inverted...)
}

// DecodeDecimal is the inverse of EncodeDecimal.
func DecodeDecimal(b []byte) Decimal {
	if len(b) == 0 || b[0] == 1 {
		return Decimal{Unscaled: new(big.Int)}
	}
	sign := b[0]
	zz, n := varint.Decode(b[1:])
	off := 1 + n
	length, n2 := varint.Decode(b[off:])
	off += n2
	raw := b[off : off+int(length)]

	if sign == 2 {
		exp := zigzagDecode(zz)
		mag := new(big.Int).SetBytes(raw)
		numDigits := int64(len(mag.Text(10)))
		scale := int32(numDigits - exp)
		return Decimal{Unscaled: mag, Scale: scale}
	}
	exp := zigzagDecode(zz)
	inverted := make([]byte, len(raw))
	for i, bb := range raw {
		inverted[i] = ^bb
	}
	mag := new(big.Int).SetBytes(inverted)
	numDigits := int64(len(mag.Text(10)))
	scale := int32(numDigits - (-exp))
	return Decimal{Unscaled: new(big.Int).Neg(mag), Scale: scale}
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
