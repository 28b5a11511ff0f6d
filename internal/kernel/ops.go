// Package kernel implements the elementwise and normalization kernels the
// residual-stream runtime is built on, in three precision regimes: plain
// float32, emulated binary16 storage, and fused paths that keep the
// normalization statistics in a widened accumulator.
package kernel

import "math"

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	if cpu.HasAVX2 {
		addSIMD(dst, src)
		return
	}
	addScalar(dst, src)
}

func addScalar(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// RMSNorm performs Root Mean Square Normalization with float32 statistics.
func RMSNorm(dst, src, weight []float32, eps float32) {
	if cpu.HasAVX2 {
		rmsNormSIMD(dst, src, weight, eps)
		return
	}
	rmsNormScalar(dst, src, weight, eps)
}

func rmsNormScalar(dst, src, weight []float32, eps float32) {
	var sum float32
	for _, v := range src {
		sum += v * v
	}
	mean := sum / float32(len(src))
	scale := float32(1.0) / float32(math.Sqrt(float64(mean+eps)))
	for i := range src {
		dst[i] = src[i] * scale * weight[i]
	}
}
