package kernel

// Ops defines the elementwise operations the residual runtime dispatches
// through. Implementations may additionally provide fused kernels; see
// FusedAddRMSNorm.
type Ops interface {
	Add(dst, src []float32)
	RMSNorm(dst, src, weight []float32, eps float32)
}

// DefaultOps provides the built-in CPU implementation, SIMD-accelerated
// where the host supports it.
type DefaultOps struct{}

func (DefaultOps) Add(dst, src []float32) {
	Add(dst, src)
}

func (DefaultOps) RMSNorm(dst, src, weight []float32, eps float32) {
	RMSNorm(dst, src, weight, eps)
}

// AddRMSNorm marks DefaultOps as fusion-capable.
func (DefaultOps) AddRMSNorm(normed, residual, x, weight []float32, eps float32) bool {
	AddRMSNorm(normed, residual, x, weight, eps)
	return true
}

// EnsureOps returns the provided ops or the default implementation.
func EnsureOps(current Ops) Ops {
	if current == nil {
		return DefaultOps{}
	}
	return current
}

// FusedAddRMSNorm uses a fused kernel if ops provides one, otherwise falls
// back to separate add and normalize passes over the residual.
func FusedAddRMSNorm(ops Ops, normed, residual, x, weight []float32, eps float32) {
	type fusedOps interface {
		AddRMSNorm(normed, residual, x, weight []float32, eps float32) bool
	}

	if fused, ok := ops.(fusedOps); ok {
		if fused.AddRMSNorm(normed, residual, x, weight, eps) {
			return
		}
	}

	// Fallback to separate operations
	ops.Add(residual, x)
	ops.RMSNorm(normed, residual, weight, eps)
}
