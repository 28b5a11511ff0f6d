package kernel

import "math"

// AddRMSNorm fuses the residual update with the following normalization:
// residual += x, then normed = RMSNorm(residual, weight, eps). The sum of
// squares accumulates in float64 so the statistic survives magnitudes the
// storage format cannot square.
func AddRMSNorm(normed, residual, x, weight []float32, eps float32) {
	if len(residual) != len(x) || len(residual) != len(weight) {
		panic("AddRMSNorm input sizes do not match")
	}
	if len(normed) < len(residual) {
		panic("AddRMSNorm normed too small")
	}
	if cpu.HasAVX2 {
		addRMSNormSIMD(normed, residual, x, weight, eps)
		return
	}
	addRMSNormScalar(normed, residual, x, weight, eps)
}

// addRMSNormScalar uses four independent float64 accumulators so the adds
// pipeline without a loop-carried dependency on a single sum.
func addRMSNormScalar(normed, residual, x, weight []float32, eps float32) {
	n := len(residual)
	if n == 0 {
		return
	}
	var sum0, sum1, sum2, sum3 float64
	i := 0
	for ; i+3 < n; i += 4 {
		s0 := residual[i] + x[i]
		s1 := residual[i+1] + x[i+1]
		s2 := residual[i+2] + x[i+2]
		s3 := residual[i+3] + x[i+3]
		residual[i] = s0
		residual[i+1] = s1
		residual[i+2] = s2
		residual[i+3] = s3
		sum0 += float64(s0) * float64(s0)
		sum1 += float64(s1) * float64(s1)
		sum2 += float64(s2) * float64(s2)
		sum3 += float64(s3) * float64(s3)
	}
	sum := sum0 + sum1 + sum2 + sum3
	for ; i < n; i++ {
		s := residual[i] + x[i]
		residual[i] = s
		sum += float64(s) * float64(s)
	}

	scale := float32(1.0 / math.Sqrt(sum/float64(n)+float64(eps)))
	i = 0
	for ; i+3 < n; i += 4 {
		normed[i] = residual[i] * scale * weight[i]
		normed[i+1] = residual[i+1] * scale * weight[i+1]
		normed[i+2] = residual[i+2] * scale * weight[i+2]
		normed[i+3] = residual[i+3] * scale * weight[i+3]
	}
	for ; i < n; i++ {
		normed[i] = residual[i] * scale * weight[i]
	}
}
