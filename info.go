package resampler

import (
	"github.com/geekuillaume/go-speex-resampler/internal/simdops"
)

// Info describes the filter behind a resampler.
type Info struct {
	// Algorithm describes the resampling algorithm in use.
	Algorithm string

	// FilterLength is the number of taps per polyphase kernel.
	FilterLength int

	// Phases is the number of polyphase kernels.
	Phases int

	// InputLatency and OutputLatency are the filter delay in frames.
	InputLatency  int
	OutputLatency int

	// SIMDType describes the SIMD instruction set in use.
	SIMDType string
}

// filterInfo is implemented by converters that can describe their filter.
type filterInfo interface {
	FilterLength() int
	Phases() int
	Direct() bool
}

// Info returns information about the resampler's filter.
func (r *Resampler) Info() Info {
	info := Info{
		Algorithm: "unknown",
		SIMDType:  simdops.Info(),
	}
	info.InputLatency, info.OutputLatency = r.Latency()

	if fi, ok := r.conv.(filterInfo); ok {
		info.FilterLength = fi.FilterLength()
		info.Phases = fi.Phases()
		if fi.Direct() {
			info.Algorithm = "windowed-sinc polyphase"
		} else {
			info.Algorithm = "windowed-sinc interpolated"
		}
	}
	return info
}
