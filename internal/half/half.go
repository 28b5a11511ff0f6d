// Package half implements the 16-bit storage formats the kernels round
// through: IEEE 754 binary16 (F16) and bfloat16 (BF16). Values are carried
// as raw bits; all arithmetic happens in float32 or wider.
package half

import "math"

// F16 is an IEEE 754 binary16 value represented as raw bits.
type F16 uint16

// BF16 is a brain floating-point value represented as raw bits.
type BF16 uint16

const (
	// MaxF16 is the largest finite binary16 magnitude.
	MaxF16 float32 = 65504

	// F16Inf and F16NegInf are the binary16 infinities.
	F16Inf    F16 = 0x7C00
	F16NegInf F16 = 0xFC00

	f16SignMask uint16 = 0x8000
	f16ExpMask  uint16 = 0x7C00
	f16FracMask uint16 = 0x03FF
)

// FromF32 converts f to binary16 with round-to-nearest-even.
// Values beyond ±MaxF16 after rounding become ±Inf; magnitudes that round
// below the smallest subnormal flush to signed zero.
func FromF32(f float32) F16 {
	u := math.Float32bits(f)
	sign := (u >> 31) & 0x1
	exp := int((u >> 23) & 0xFF)
	frac := u & 0x7FFFFF

	if exp == 0xFF {
		// Inf/NaN
		if frac != 0 {
			return F16(uint16(sign<<15) | f16ExpMask | uint16(frac>>13) | 1)
		}
		return F16(uint16(sign<<15) | f16ExpMask)
	}

	// unbiased exponent
	e := exp - 127
	if e > 15 {
		// overflow -> inf
		return F16(uint16(sign<<15) | f16ExpMask)
	}
	if e < -14 {
		// subnormal or zero; below half the smallest subnormal, flush
		if e < -25 {
			return F16(uint16(sign << 15))
		}
		// add implicit leading 1, then round once at the full discard
		// boundary: the 13 truncated mantissa bits plus the subnormal shift
		frac |= 0x800000
		shift := uint32(-1 - e)
		rnd := uint32(1<<(shift-1)) - 1 + ((frac >> shift) & 1)
		// a carry out of the subnormal range lands on the smallest normal
		frac = (frac + rnd) >> shift
		return F16(uint16(sign<<15) | uint16(frac))
	}

	// normal
	exp16 := uint32(e + 15)
	// round-to-nearest-even on frac>>13
	rnd := uint32(0xFFF + ((frac >> 13) & 1))
	frac = frac + rnd
	if (frac & 0x800000) != 0 {
		// carry into exponent
		exp16++
		frac = 0
		if exp16 >= 0x1F {
			return F16(uint16(sign<<15) | f16ExpMask)
		}
	}
	return F16(uint16(sign<<15) | uint16(exp16<<10) | uint16(frac>>13))
}

// F32 widens h to float32 exactly, including subnormals, infinities and
// NaN payloads.
func (h F16) F32() float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h) & 0x3FF
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}

// IsInf reports whether h is +Inf or -Inf.
func (h F16) IsInf() bool {
	return uint16(h)&^f16SignMask == f16ExpMask
}

// IsNaN reports whether h encodes a NaN.
func (h F16) IsNaN() bool {
	return uint16(h)&f16ExpMask == f16ExpMask && uint16(h)&f16FracMask != 0
}

// IsFinite reports whether h is neither Inf nor NaN.
func (h F16) IsFinite() bool {
	return uint16(h)&f16ExpMask != f16ExpMask
}

// BF16FromF32 converts f to bfloat16 with round-to-nearest-even on the
// truncated 16 bits.
func BF16FromF32(f float32) BF16 {
	u := math.Float32bits(f)
	rnd := uint32(0x7FFF + ((u >> 16) & 1))
	return BF16((u + rnd) >> 16)
}

// F32 widens b to float32 by shifting into the high half.
func (b BF16) F32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// ULP returns the spacing between adjacent binary16 values at magnitude v.
// It is the quantization tolerance a binary16 store introduces.
func ULP(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return float32(math.Inf(1))
	}
	a := v
	if a < 0 {
		a = -a
	}
	if a > MaxF16 {
		return float32(math.Inf(1))
	}
	// Subnormal spacing is constant: 2^-24.
	if a < 6.103515625e-05 {
		return 5.9604644775390625e-08
	}
	e := int(math.Floor(math.Log2(float64(a))))
	return float32(math.Ldexp(1, e-10))
}
