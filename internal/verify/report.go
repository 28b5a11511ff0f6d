package verify

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// EncodeJSON renders the report as indented JSON.
func (r *Report) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteText renders the report as a human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "=== fusenorm verification %s ===\n", r.ID)
	fmt.Fprintf(w, "Host:   %s/%s, %d CPUs, AVX2=%v\n",
		r.Features.GoOS, r.Features.GoArch, r.Features.CPUs, r.Features.AVX2)
	fmt.Fprintf(w, "Seed:   %d\n", r.Seed)
	fmt.Fprintf(w, "Cases:  %d passed, %d failed\n\n", r.Passed, r.Failed)

	for _, o := range r.Outcomes {
		status := "PASS"
		if !o.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-4s %-24s width=%d layers=%d gen=%s\n",
			status, o.Case.Name, o.Case.Width, o.Case.Layers, o.Case.Gen)
		for _, p := range o.Properties {
			mark := "ok"
			if !p.Pass {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "       %-16s %-4s %s\n", p.Name, mark, p.Detail)
		}
		fmt.Fprintf(w, "       fused vs ref: max|Δ|=%.3g rmse=%.3g cos=%.6f\n",
			o.FusedVsRef.MaxAbs, o.FusedVsRef.RMSE, o.FusedVsRef.Cosine)
		fmt.Fprintf(w, "       baseline vs ref: max|Δ|=%.3g non-finite=%d overflows=%d\n",
			o.BaselineVsRef.MaxAbs, o.BaselineVsRef.NonFiniteA, o.BaselineOverflows)
	}
	return nil
}
