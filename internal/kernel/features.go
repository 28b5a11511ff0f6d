package kernel

import (
	"runtime"

	xcpu "golang.org/x/sys/cpu"
)

// Features describes the host capabilities the kernels can dispatch on.
type Features struct {
	GoOS   string          `json:"go_os"`
	GoArch string          `json:"go_arch"`
	CPUs   int             `json:"cpus"`
	AVX2   bool            `json:"avx2"`
	Flags  map[string]bool `json:"flags"`
}

// DetectFeatures reports the capability inventory of the running host.
// AVX2 reflects the dispatch decision the kernels actually make; Flags is
// the wider inventory for diagnostics.
func DetectFeatures() Features {
	flags := map[string]bool{
		"AVX":           xcpu.X86.HasAVX,
		"AVX2":          xcpu.X86.HasAVX2,
		"FMA":           xcpu.X86.HasFMA,
		"AVX512F":       xcpu.X86.HasAVX512F,
		"AVX512BF16":    xcpu.X86.HasAVX512BF16,
		"AVX512FP16":    xcpu.X86.HasAVX512FP16,
		"AVX512VNNI":    xcpu.X86.HasAVX512VNNI,
		"SSE42":         xcpu.X86.HasSSE42,
		"ARM64.FP":      xcpu.ARM64.HasFP,
		"ARM64.ASIMD":   xcpu.ARM64.HasASIMD,
		"ARM64.FPHP":    xcpu.ARM64.HasFPHP,
		"ARM64.ASIMDHP": xcpu.ARM64.HasASIMDHP,
	}

	return Features{
		GoOS:   runtime.GOOS,
		GoArch: runtime.GOARCH,
		CPUs:   runtime.NumCPU(),
		AVX2:   cpu.HasAVX2,
		Flags:  flags,
	}
}

// HasAVX2 reports whether the SIMD kernel paths are active.
func HasAVX2() bool {
	return cpu.HasAVX2
}
