package kernel

import (
	"math"

	"github.com/samcharles93/fusenorm/internal/half"
)

// The half-storage kernels operate on raw binary16 bits ([]uint16). They
// model two pipelines:
//
//   - AddHalf + RMSNormHalf: the unfused baseline. Every intermediate is
//     materialized at binary16 precision, including the squares and the
//     running sum inside the normalization, the way a device kernel whose
//     accumulator matches its storage format behaves.
//   - AddRMSNormHalf: the fused path. The elementwise sum and the sum of
//     squares live in widened registers; binary16 rounding happens only at
//     the two final stores.
//
// Each kernel returns the number of non-finite values it produced from
// finite inputs, so callers can tell overflow introduced by the kernel from
// poison that arrived in the operands.

// AddHalf adds src into dst element-wise. The add itself runs in float32;
// the result is rounded back to binary16 on store, so a sum beyond ±65504
// becomes ±Inf.
func AddHalf(dst, src []uint16) int {
	if len(dst) != len(src) {
		panic("AddHalf input sizes do not match")
	}
	overflowed := 0
	for i := range dst {
		a := half.Lookup(half.F16(dst[i]))
		b := half.Lookup(half.F16(src[i]))
		s := half.FromF32(a + b)
		if !s.IsFinite() && half.F16(dst[i]).IsFinite() && half.F16(src[i]).IsFinite() {
			overflowed++
		}
		dst[i] = uint16(s)
	}
	return overflowed
}

// RMSNormHalf normalizes src into dst with every intermediate held at
// binary16 precision: each square is rounded to binary16 before it joins
// the running sum, and the running sum is rounded after every add. A single
// element with |v| > ~255.9 squares to Inf and poisons the statistic; the
// scale then collapses to zero and any Inf input element normalizes to NaN.
func RMSNormHalf(dst, src []uint16, weight []float32, eps float32) int {
	if len(src) != len(weight) {
		panic("RMSNormHalf input sizes do not match")
	}
	if len(dst) < len(src) {
		panic("RMSNormHalf dst too small")
	}
	n := len(src)
	if n == 0 {
		return 0
	}

	overflowed := 0
	sum := half.F16(0)
	for _, u := range src {
		v := half.Lookup(half.F16(u))
		sq := half.FromF32(v * v)
		if !sq.IsFinite() && half.F16(u).IsFinite() {
			overflowed++
		}
		sum = half.FromF32(half.Lookup(sum) + half.Lookup(sq))
	}

	mean := half.Lookup(sum) / float32(n)
	scale := float32(1.0) / float32(math.Sqrt(float64(mean+eps)))
	for i, u := range src {
		v := half.Lookup(half.F16(u))
		out := half.FromF32(v * scale * weight[i])
		if !out.IsFinite() && half.F16(u).IsFinite() {
			overflowed++
		}
		dst[i] = uint16(out)
	}
	return overflowed
}

// AddRMSNormHalf fuses the residual update and normalization over binary16
// storage. residual and x are decoded once; the elementwise sums stay in
// float32 registers, the sum of squares accumulates in float64, and the
// normalized output is computed from the unrounded sums. Binary16 rounding
// happens only when the updated residual and the normalized output are
// stored. The returned count covers residual stores that overflowed to Inf;
// the normalized output cannot overflow unless the weights do.
func AddRMSNormHalf(normed, residual, x []uint16, weight []float32, eps float32) int {
	if len(residual) != len(x) || len(residual) != len(weight) {
		panic("AddRMSNormHalf input sizes do not match")
	}
	if len(normed) < len(residual) {
		panic("AddRMSNormHalf normed too small")
	}
	n := len(residual)
	if n == 0 {
		return 0
	}

	// Pass 1: widened sum of squares over the unrounded elementwise sums.
	var sum0, sum1, sum2, sum3 float64
	i := 0
	for ; i+3 < n; i += 4 {
		s0 := half.Lookup(half.F16(residual[i])) + half.Lookup(half.F16(x[i]))
		s1 := half.Lookup(half.F16(residual[i+1])) + half.Lookup(half.F16(x[i+1]))
		s2 := half.Lookup(half.F16(residual[i+2])) + half.Lookup(half.F16(x[i+2]))
		s3 := half.Lookup(half.F16(residual[i+3])) + half.Lookup(half.F16(x[i+3]))
		sum0 += float64(s0) * float64(s0)
		sum1 += float64(s1) * float64(s1)
		sum2 += float64(s2) * float64(s2)
		sum3 += float64(s3) * float64(s3)
	}
	sum := sum0 + sum1 + sum2 + sum3
	for ; i < n; i++ {
		s := half.Lookup(half.F16(residual[i])) + half.Lookup(half.F16(x[i]))
		sum += float64(s) * float64(s)
	}

	scale := float32(1.0 / math.Sqrt(sum/float64(n)+float64(eps)))

	// Pass 2: recompute each sum from the original operands and store both
	// results. Recomputing is table lookups; the rounded residual must not
	// feed the normalized store.
	overflowed := 0
	for i := range residual {
		rIn := half.F16(residual[i])
		xIn := half.F16(x[i])
		s := half.Lookup(rIn) + half.Lookup(xIn)
		rOut := half.FromF32(s)
		if !rOut.IsFinite() && rIn.IsFinite() && xIn.IsFinite() {
			overflowed++
		}
		residual[i] = uint16(rOut)
		normed[i] = uint16(half.FromF32(s * scale * weight[i]))
	}
	return overflowed
}
