package verify

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/fusenorm/internal/half"
	"github.com/samcharles93/fusenorm/internal/kernel"
	"github.com/samcharles93/fusenorm/internal/stream"
)

// Per-step agreement bound between the fused binary16 path and the float32
// reference: a small relative band, on top of the binary16 spacing at the
// step's peak magnitude as the quantization floor.
const relTol = 0.02

// PropertyResult records one checked property of a case.
type PropertyResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail"`
}

// Outcome is the result of one case across all three policies.
type Outcome struct {
	Case              Case             `json:"case"`
	Pass              bool             `json:"pass"`
	Properties        []PropertyResult `json:"properties"`
	FusedVsRef        Stats            `json:"fused_vs_ref"`
	BaselineVsRef     Stats            `json:"baseline_vs_ref"`
	FusedOverflows    int              `json:"fused_overflows"`
	BaselineOverflows int              `json:"baseline_overflows"`
}

// Report is the output of a suite run.
type Report struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Seed      int64           `json:"seed"`
	Features  kernel.Features `json:"features"`
	Outcomes  []Outcome       `json:"outcomes"`
	Passed    int             `json:"passed"`
	Failed    int             `json:"failed"`
}

// Pass reports whether every case passed.
func (r *Report) Pass() bool { return r.Failed == 0 }

// RunCase steps the fused, baseline and reference streams through the
// case's blocks in lockstep and evaluates the three properties:
//
//	finite-fused:    the fused normalized output never contains inf/NaN
//	matches-ref:     the fused output tracks the float32 reference
//	baseline-breaks: the unfused baseline diverges exactly when expected
func RunCase(c Case) (Outcome, error) {
	out := Outcome{Case: c}

	blocks, err := c.Blocks()
	if err != nil {
		return out, err
	}

	fused, err := stream.New(stream.Config{Width: c.Width, Policy: stream.PolicyHalfFused})
	if err != nil {
		return out, fmt.Errorf("case %q: %w", c.Name, err)
	}
	baseline, err := stream.New(stream.Config{Width: c.Width, Policy: stream.PolicyHalf})
	if err != nil {
		return out, fmt.Errorf("case %q: %w", c.Name, err)
	}
	ref, err := stream.New(stream.Config{Width: c.Width, Policy: stream.PolicyF32})
	if err != nil {
		return out, fmt.Errorf("case %q: %w", c.Name, err)
	}

	fusedFinite := true
	fusedMatches := true
	baselineBroke := false
	var worstStep int
	var worstDiff float64

	for l, blk := range blocks {
		fusedOut, err := fused.Step(blk)
		if err != nil {
			return out, fmt.Errorf("case %q: fused layer %d: %w", c.Name, l, err)
		}
		baseOut, err := baseline.Step(blk)
		if err != nil {
			return out, fmt.Errorf("case %q: baseline layer %d: %w", c.Name, l, err)
		}
		refOut, err := ref.Step(blk)
		if err != nil {
			return out, fmt.Errorf("case %q: reference layer %d: %w", c.Name, l, err)
		}

		if NonFinite(fusedOut) > 0 {
			fusedFinite = false
		}
		peak := maxAbs(refOut)
		st := Diff(fusedOut, refOut)
		if st.MaxAbs > relTol*peak+float64(half.ULP(float32(peak))) {
			fusedMatches = false
		}
		if st.MaxAbs > worstDiff {
			worstDiff = st.MaxAbs
			worstStep = l
		}
		if NonFinite(baseOut) > 0 {
			baselineBroke = true
		}

		if l == len(blocks)-1 {
			out.FusedVsRef = st
			out.BaselineVsRef = Diff(baseOut, refOut)
		}
	}
	if baseline.Overflows() > 0 {
		baselineBroke = true
	}
	out.FusedOverflows = fused.Overflows()
	out.BaselineOverflows = baseline.Overflows()

	out.Properties = []PropertyResult{
		{
			Name:   "finite-fused",
			Pass:   fusedFinite,
			Detail: fmt.Sprintf("fused overflow events: %d", fused.Overflows()),
		},
		{
			Name:   "matches-ref",
			Pass:   fusedMatches,
			Detail: fmt.Sprintf("worst |Δ|=%.3g at layer %d", worstDiff, worstStep),
		},
		{
			Name: "baseline-breaks",
			Pass: baselineBroke == c.ExpectOverflow,
			Detail: fmt.Sprintf("baseline overflow events: %d, expected divergence: %v",
				baseline.Overflows(), c.ExpectOverflow),
		},
	}

	out.Pass = true
	for _, p := range out.Properties {
		if !p.Pass {
			out.Pass = false
		}
	}
	return out, nil
}

// RunSuite runs the given cases, or the builtin set when cases is empty.
func RunSuite(seed int64, cases []Case) (*Report, error) {
	if len(cases) == 0 {
		cases = Builtin(seed)
	}
	rep := &Report{
		ID:        "ver_" + uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Seed:      seed,
		Features:  kernel.DetectFeatures(),
	}
	for _, c := range cases {
		outcome, err := RunCase(c)
		if err != nil {
			return nil, err
		}
		rep.Outcomes = append(rep.Outcomes, outcome)
		if outcome.Pass {
			rep.Passed++
		} else {
			rep.Failed++
		}
	}
	return rep, nil
}

func maxAbs(v []float32) float64 {
	var m float64
	for _, x := range v {
		f := math.Abs(float64(x))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if f > m {
			m = f
		}
	}
	return m
}
