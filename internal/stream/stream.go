// Package stream drives the kernels the way a transformer forward pass
// does: a running residual vector receives each layer's block output and is
// RMS-normalized to produce the next block's input. The residual storage
// precision and the add+normalize fusion are selected by policy, which is
// what makes the overflow behavior of each pipeline observable side by side.
package stream

import (
	"fmt"
	"math"

	"github.com/samcharles93/fusenorm/internal/half"
	"github.com/samcharles93/fusenorm/internal/kernel"
)

// Policy selects residual storage precision and kernel fusion.
type Policy string

const (
	// PolicyHalf is the unfused baseline: the residual lives in binary16
	// and the add and normalize are separate kernels with binary16
	// intermediates.
	PolicyHalf Policy = "half"
	// PolicyHalfFused keeps binary16 residual storage but fuses the add
	// and normalize with widened internal accumulation.
	PolicyHalfFused Policy = "half-fused"
	// PolicyF32 is the full float32 reference pipeline.
	PolicyF32 Policy = "f32"
)

// ParsePolicy resolves a policy name, accepting the empty string as the
// fused default.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyHalf, PolicyHalfFused, PolicyF32:
		return Policy(s), nil
	case "":
		return PolicyHalfFused, nil
	}
	return "", fmt.Errorf("unknown policy %q (want half, half-fused or f32)", s)
}

// Config describes a residual stream.
type Config struct {
	// Width is the model dimension.
	Width int
	// Eps is the RMSNorm epsilon. Zero means 1e-5.
	Eps float32
	// Policy selects precision and fusion. Empty means PolicyHalfFused.
	Policy Policy
	// Weight is the norm weight vector of length Width. Nil means ones.
	Weight []float32
	// Ops overrides kernel dispatch for the float32 policy. Nil means the
	// built-in implementation.
	Ops kernel.Ops
}

// Stream is a running residual. Buffers returned by Step and Residual are
// owned by the Stream and overwritten on the next call.
type Stream struct {
	width  int
	eps    float32
	policy Policy
	weight []float32
	ops    kernel.Ops

	resF32 []float32
	resF16 []uint16

	xF16    []uint16
	normF16 []uint16
	normF32 []float32
	resView []float32

	steps     int
	overflows int
}

// New validates cfg and allocates a zeroed residual stream.
func New(cfg Config) (*Stream, error) {
	if cfg.Width <= 0 {
		return nil, fmt.Errorf("stream: width must be positive, got %d", cfg.Width)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyHalfFused
	}
	switch policy {
	case PolicyHalf, PolicyHalfFused, PolicyF32:
	default:
		return nil, fmt.Errorf("stream: unknown policy %q", policy)
	}
	if cfg.Weight != nil && len(cfg.Weight) != cfg.Width {
		return nil, fmt.Errorf("stream: weight length %d does not match width %d", len(cfg.Weight), cfg.Width)
	}
	eps := cfg.Eps
	if eps == 0 {
		eps = 1e-5
	}

	weight := cfg.Weight
	if weight == nil {
		weight = make([]float32, cfg.Width)
		for i := range weight {
			weight[i] = 1
		}
	}

	s := &Stream{
		width:   cfg.Width,
		eps:     eps,
		policy:  policy,
		weight:  weight,
		ops:     kernel.EnsureOps(cfg.Ops),
		normF32: make([]float32, cfg.Width),
	}
	if policy == PolicyF32 {
		s.resF32 = make([]float32, cfg.Width)
	} else {
		s.resF16 = make([]uint16, cfg.Width)
		s.xF16 = make([]uint16, cfg.Width)
		s.normF16 = make([]uint16, cfg.Width)
		s.resView = make([]float32, cfg.Width)
	}
	return s, nil
}

// Policy returns the stream's precision policy.
func (s *Stream) Policy() Policy { return s.policy }

// Width returns the model dimension.
func (s *Stream) Width() int { return s.width }

// Steps returns the number of residual updates applied since the last Reset.
func (s *Stream) Steps() int { return s.steps }

// Overflows returns the cumulative count of values the kernels turned
// non-finite from finite operands.
func (s *Stream) Overflows() int { return s.overflows }

// Step adds one block output into the residual and returns the normalized
// vector the next block would consume. The returned slice is overwritten on
// the next call.
func (s *Stream) Step(blockOut []float32) ([]float32, error) {
	if len(blockOut) != s.width {
		return nil, fmt.Errorf("stream: block output length %d does not match width %d", len(blockOut), s.width)
	}

	switch s.policy {
	case PolicyF32:
		kernel.FusedAddRMSNorm(s.ops, s.normF32, s.resF32, blockOut, s.weight, s.eps)
	case PolicyHalfFused:
		half.EncodeF16(s.xF16, blockOut)
		s.overflows += kernel.AddRMSNormHalf(s.normF16, s.resF16, s.xF16, s.weight, s.eps)
		half.DecodeF16(s.normF32, s.normF16)
	case PolicyHalf:
		half.EncodeF16(s.xF16, blockOut)
		s.overflows += kernel.AddHalf(s.resF16, s.xF16)
		s.overflows += kernel.RMSNormHalf(s.normF16, s.resF16, s.weight, s.eps)
		half.DecodeF16(s.normF32, s.normF16)
	}

	s.steps++
	return s.normF32, nil
}

// Run applies every block output in order and returns the final normalized
// vector.
func (s *Stream) Run(blocks [][]float32) ([]float32, error) {
	var out []float32
	for i, blk := range blocks {
		normed, err := s.Step(blk)
		if err != nil {
			return nil, fmt.Errorf("stream: layer %d: %w", i, err)
		}
		out = normed
	}
	return out, nil
}

// Residual returns the current residual decoded to float32. The slice is
// owned by the Stream.
func (s *Stream) Residual() []float32 {
	if s.policy == PolicyF32 {
		return s.resF32
	}
	half.DecodeF16(s.resView, s.resF16)
	return s.resView
}

// NonFinite counts inf/NaN elements in the current residual. A poisoned
// binary16 residual stays poisoned; the runtime never masks it.
func (s *Stream) NonFinite() int {
	n := 0
	if s.policy == PolicyF32 {
		for _, v := range s.resF32 {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				n++
			}
		}
		return n
	}
	for _, u := range s.resF16 {
		if !half.F16(u).IsFinite() {
			n++
		}
	}
	return n
}

// Reset zeroes the residual and counters.
func (s *Stream) Reset() {
	s.steps = 0
	s.overflows = 0
	for i := range s.resF32 {
		s.resF32[i] = 0
	}
	for i := range s.resF16 {
		s.resF16[i] = 0
	}
}
