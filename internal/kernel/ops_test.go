package kernel

import (
	"math"
	"testing"
)

func TestAddMatchesScalar(t *testing.T) {
	n := 259 // odd length exercises the SIMD tail
	dst := make([]float32, n)
	src := make([]float32, n)
	want := make([]float32, n)
	for i := range dst {
		dst[i] = float32(i%13) - 6
		src[i] = float32(i%7) / 3
		want[i] = dst[i] + src[i]
	}
	Add(dst, src)
	for i := range dst {
		if dst[i] != want[i] {
			t.Fatalf("add[%d]=%v want %v", i, dst[i], want[i])
		}
	}
}

func TestRMSNormUnitInput(t *testing.T) {
	// All-ones input with unit weights normalizes to ones.
	n := 128
	src := make([]float32, n)
	weight := make([]float32, n)
	for i := range src {
		src[i] = 1
		weight[i] = 1
	}
	dst := make([]float32, n)
	RMSNorm(dst, src, weight, 1e-6)
	const tol = 1e-4
	for i, v := range dst {
		if v < 1-tol || v > 1+tol {
			t.Fatalf("rmsnorm[%d]=%v want ~1", i, v)
		}
	}
}

func TestRMSNormScaleInvariantDirection(t *testing.T) {
	// Scaling the input leaves the normalized direction unchanged.
	n := 96
	src := make([]float32, n)
	scaled := make([]float32, n)
	weight := make([]float32, n)
	for i := range src {
		src[i] = float32((i%19)-9) / 4
		scaled[i] = src[i] * 8
		weight[i] = 1 + float32(i%3)/10
	}
	a := make([]float32, n)
	b := make([]float32, n)
	RMSNorm(a, src, weight, 0)
	RMSNorm(b, scaled, weight, 0)
	const tol = 1e-4
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > tol {
			t.Fatalf("direction changed at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func BenchmarkRMSNorm2048(b *testing.B) {
	n := 2048
	src := make([]float32, n)
	weight := make([]float32, n)
	for i := range src {
		src[i] = float32((i%23)-11) / 7
		weight[i] = 1
	}
	dst := make([]float32, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RMSNorm(dst, src, weight, 1e-5)
	}
}

func BenchmarkAdd2048(b *testing.B) {
	n := 2048
	dst := make([]float32, n)
	src := make([]float32, n)
	for i := range src {
		src[i] = float32(i%13) / 7
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Add(dst, src)
	}
}
