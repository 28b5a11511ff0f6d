package kernel

import (
	"math"

	"simd/archsimd"
)

// addSIMD adds src to dst element-wise using AVX2.
func addSIMD(dst, src []float32) {
	n := len(dst)
	i := 0
	for ; i+8 <= n; i += 8 {
		vd := archsimd.LoadFloat32x8Slice(dst[i:])
		vs := archsimd.LoadFloat32x8Slice(src[i:])
		vd = vd.Add(vs)
		vd.StoreSlice(dst[i:])
	}
	for ; i < n; i++ {
		dst[i] += src[i]
	}
}

// rmsNormSIMD performs Root Mean Square Normalization using AVX2.
func rmsNormSIMD(dst, src, weight []float32, eps float32) {
	n := len(src)
	if n == 0 {
		return
	}

	var acc archsimd.Float32x8
	i := 0
	for ; i+8 <= n; i += 8 {
		v := archsimd.LoadFloat32x8Slice(src[i:])
		acc = v.MulAdd(v, acc)
	}

	var tmp [8]float32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]
	for ; i < n; i++ {
		sum += src[i] * src[i]
	}

	mean := sum / float32(n)
	scale := float32(1.0) / float32(math.Sqrt(float64(mean+eps)))

	vscale := archsimd.BroadcastFloat32x8(scale)
	i = 0
	for ; i+8 <= n; i += 8 {
		vsrc := archsimd.LoadFloat32x8Slice(src[i:])
		vw := archsimd.LoadFloat32x8Slice(weight[i:])
		v := vsrc.Mul(vscale)
		v = v.Mul(vw)
		v.StoreSlice(dst[i:])
	}
	for ; i < n; i++ {
		dst[i] = src[i] * scale * weight[i]
	}
}

// addRMSNormSIMD is the fused float32 path: residual += x and the sum of
// squares of the updated residual accumulate in the same pass, so the
// intermediate sum is never re-read from memory.
func addRMSNormSIMD(normed, residual, x, weight []float32, eps float32) {
	n := len(residual)
	if n == 0 {
		return
	}

	var acc archsimd.Float32x8
	i := 0
	for ; i+8 <= n; i += 8 {
		vr := archsimd.LoadFloat32x8Slice(residual[i:])
		vx := archsimd.LoadFloat32x8Slice(x[i:])
		vr = vr.Add(vx)
		vr.StoreSlice(residual[i:])
		acc = vr.MulAdd(vr, acc)
	}

	var tmp [8]float32
	acc.Store(&tmp)
	sum := tmp[0] + tmp[1] + tmp[2] + tmp[3] + tmp[4] + tmp[5] + tmp[6] + tmp[7]
	for ; i < n; i++ {
		residual[i] += x[i]
		sum += residual[i] * residual[i]
	}

	mean := sum / float32(n)
	scale := float32(1.0) / float32(math.Sqrt(float64(mean+eps)))

	vscale := archsimd.BroadcastFloat32x8(scale)
	i = 0
	for ; i+8 <= n; i += 8 {
		vr := archsimd.LoadFloat32x8Slice(residual[i:])
		vw := archsimd.LoadFloat32x8Slice(weight[i:])
		v := vr.Mul(vscale)
		v = v.Mul(vw)
		v.StoreSlice(normed[i:])
	}
	for ; i < n; i++ {
		normed[i] = residual[i] * scale * weight[i]
	}
}
