package api

import (
	"fmt"

	"github.com/samcharles93/fusenorm/internal/stream"
	"github.com/samcharles93/fusenorm/internal/verify"
)

// VerifyRequest runs the suite. An empty Cases slice means the builtin set.
type VerifyRequest struct {
	Seed  int64         `json:"seed"`
	Cases []verify.Case `json:"cases,omitempty"`
}

// KernelRequest executes one fused add+RMSNorm step on caller-provided
// vectors under the given policy.
type KernelRequest struct {
	Policy   string    `json:"policy"`
	Residual []float32 `json:"residual"`
	X        []float32 `json:"x"`
	Weight   []float32 `json:"weight,omitempty"`
	Eps      float32   `json:"eps,omitempty"`
}

// KernelResponse carries the kernel outputs and the comparison against the
// float32 reference pipeline run on the same inputs.
type KernelResponse struct {
	Policy    string       `json:"policy"`
	Normed    []float32    `json:"normed"`
	Residual  []float32    `json:"residual"`
	Overflows int          `json:"overflows"`
	VsRef     verify.Stats `json:"vs_ref"`
}

const maxKernelWidth = 1 << 20

func validateCase(c *verify.Case) error {
	if c.Width <= 0 || c.Width > maxKernelWidth {
		return fmt.Errorf("case %q: width out of range", c.Name)
	}
	if c.Layers <= 0 || c.Layers > 4096 {
		return fmt.Errorf("case %q: layers out of range", c.Name)
	}
	return nil
}

func runKernelRequest(req KernelRequest) (*KernelResponse, error) {
	n := len(req.Residual)
	if n == 0 || n > maxKernelWidth {
		return nil, fmt.Errorf("residual length out of range")
	}
	if len(req.X) != n {
		return nil, fmt.Errorf("x length %d does not match residual length %d", len(req.X), n)
	}
	if req.Weight != nil && len(req.Weight) != n {
		return nil, fmt.Errorf("weight length %d does not match residual length %d", len(req.Weight), n)
	}
	policy, err := stream.ParsePolicy(req.Policy)
	if err != nil {
		return nil, err
	}

	run := func(p stream.Policy) (*stream.Stream, []float32, error) {
		st, err := stream.New(stream.Config{
			Width:  n,
			Eps:    req.Eps,
			Policy: p,
			Weight: req.Weight,
		})
		if err != nil {
			return nil, nil, err
		}
		if _, err := st.Step(req.Residual); err != nil {
			return nil, nil, err
		}
		normed, err := st.Step(req.X)
		if err != nil {
			return nil, nil, err
		}
		return st, normed, nil
	}

	st, normed, err := run(policy)
	if err != nil {
		return nil, err
	}
	resp := &KernelResponse{
		Policy:    string(policy),
		Normed:    append([]float32(nil), normed...),
		Residual:  append([]float32(nil), st.Residual()...),
		Overflows: st.Overflows(),
	}

	if policy != stream.PolicyF32 {
		_, refNormed, err := run(stream.PolicyF32)
		if err != nil {
			return nil, err
		}
		resp.VsRef = verify.Diff(resp.Normed, refNormed)
	} else {
		resp.VsRef = verify.Diff(resp.Normed, resp.Normed)
	}
	return resp, nil
}
