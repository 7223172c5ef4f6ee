// Package analysis measures PCM signals: level and dominant frequency per
// channel. The resample-wav command prints these for its input and output,
// and tests use them to check that conversion keeps a tone where it was.
package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// fullScale maps int16 samples to [-1, 1).
const fullScale = 32768.0

// silenceDBFS is reported for a channel with no signal.
const silenceDBFS = -120.0

// ChannelReport describes one channel.
type ChannelReport struct {
	RMS        float64 // linear, 1.0 = full scale
	RMSDBFS    float64
	Peak       float64 // linear
	DominantHz float64
}

// Report describes an interleaved signal.
type Report struct {
	Frames     int
	SampleRate int
	Channels   []ChannelReport
}

// Analyze measures every channel of interleaved PCM at the given rate.
func Analyze(interleaved []int16, channels, sampleRate int) Report {
	rep := Report{
		Frames:     len(interleaved) / channels,
		SampleRate: sampleRate,
		Channels:   make([]ChannelReport, channels),
	}
	for ch := range channels {
		x := Channel(interleaved, channels, ch)
		rms := RMS(x)
		rep.Channels[ch] = ChannelReport{
			RMS:        rms,
			RMSDBFS:    DBFS(rms),
			Peak:       peak(x),
			DominantHz: DominantFrequency(x, float64(sampleRate)),
		}
	}
	return rep
}

// Channel extracts channel ch of interleaved PCM as floats in [-1, 1).
func Channel(interleaved []int16, channels, ch int) []float64 {
	out := make([]float64, 0, len(interleaved)/channels)
	for i := ch; i < len(interleaved); i += channels {
		out = append(out, float64(interleaved[i])/fullScale)
	}
	return out
}

// RMS returns the root mean square of x, or zero for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Norm(x, 2) / math.Sqrt(float64(len(x)))
}

// DBFS converts a linear level to decibels relative to full scale.
func DBFS(level float64) float64 {
	if level <= 0 {
		return silenceDBFS
	}
	return max(20*math.Log10(level), silenceDBFS)
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin of a Hann-windowed FFT over x. Resolution is sampleRate/len(x).
// It returns zero when x has fewer than two samples or no energy.
func DominantFrequency(x []float64, sampleRate float64) float64 {
	n := len(x)
	if n < 2 {
		return 0
	}

	seq := window.Hann(append([]float64(nil), x...))
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	best, bestMag := 0, 0.0
	for i := 1; i < len(coeffs); i++ {
		if mag := cmplx.Abs(coeffs[i]); mag > bestMag {
			best, bestMag = i, mag
		}
	}
	if best == 0 {
		return 0
	}
	return fft.Freq(best) * sampleRate
}

func peak(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
}
