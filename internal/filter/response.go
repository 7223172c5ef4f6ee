// Package filter measures the frequency response of converter kernels.
package filter

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// defaultPoints is the response resolution when none is requested.
	defaultPoints = 512

	minMagnitude = 1e-10 // floor for MagnitudeDB
	dbMultiplier = 20.0
)

// Response holds the magnitude response of a FIR filter from DC to Nyquist.
type Response struct {
	// Frequencies in cycles per sample, 0 to 0.5.
	Frequencies []float64

	// Magnitude at each frequency, linear scale.
	Magnitude []float64
}

// ComputeResponse evaluates the response of coeffs at numPoints+1 evenly
// spaced frequencies using a zero-padded FFT. Long filters get a finer grid
// so that no taps are dropped.
func ComputeResponse(coeffs []float64, numPoints int) Response {
	if numPoints <= 0 {
		numPoints = defaultPoints
	}
	n := max(2*numPoints, len(coeffs))

	padded := make([]float64, n)
	copy(padded, coeffs)

	fft := fourier.NewFFT(n)
	bins := fft.Coefficients(nil, padded)

	resp := Response{
		Frequencies: make([]float64, len(bins)),
		Magnitude:   make([]float64, len(bins)),
	}
	for i, c := range bins {
		resp.Frequencies[i] = fft.Freq(i)
		resp.Magnitude[i] = cmplx.Abs(c)
	}
	return resp
}

// StopbandAttenuation returns how far, in dB, the strongest component at or
// above edge lies below the DC gain.
func (r Response) StopbandAttenuation(edge float64) float64 {
	if len(r.Magnitude) == 0 {
		return 0
	}
	worst := 0.0
	for i, f := range r.Frequencies {
		if f >= edge {
			worst = max(worst, r.Magnitude[i])
		}
	}
	return MagnitudeDB(r.Magnitude[0]) - MagnitudeDB(worst)
}

// PassbandRipple returns the peak-to-peak deviation in dB below edge.
func (r Response) PassbandRipple(edge float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, f := range r.Frequencies {
		if f >= edge {
			break
		}
		db := MagnitudeDB(r.Magnitude[i])
		lo = min(lo, db)
		hi = max(hi, db)
	}
	if lo > hi {
		return 0
	}
	return hi - lo
}

// MagnitudeDB converts linear magnitude to decibels.
func MagnitudeDB(magnitude float64) float64 {
	return dbMultiplier * math.Log10(max(magnitude, minMagnitude))
}

// Prototype reassembles the oversampled lowpass a polyphase bank was cut
// from. kernels[p] holds the taps for fractional delay p/len(kernels), so
// the prototype interleaves tap j of every phase in reverse phase order.
// The result is scaled by 1/len(kernels) to unity DC gain.
func Prototype(kernels [][]float64) []float64 {
	phases := len(kernels)
	if phases == 0 {
		return nil
	}
	taps := len(kernels[0])
	out := make([]float64, taps*phases)
	scale := 1 / float64(phases)
	for p, k := range kernels {
		for j, v := range k[:taps] {
			out[j*phases+phases-1-p] = v * scale
		}
	}
	return out
}
