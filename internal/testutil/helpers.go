// Package testutil provides reusable test helpers for PCM resampler tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10

	// SampleTolerance is the allowed per-sample difference after an int16
	// round trip through the float filter.
	SampleTolerance = 1
)

// int16Scale maps amplitude 1.0 to full-scale int16.
const int16Scale = 32767.0

// Sine generates frames of an interleaved sine tone at the given amplitude
// (0..1 of full scale). Every channel carries the same tone, shifted in phase
// by channel index so channels can be told apart.
func Sine(frames, channels int, freq, rate, amplitude float64) []int16 {
	out := make([]int16, frames*channels)
	for i := range frames {
		for ch := range channels {
			phase := float64(ch) * math.Pi / 4
			v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate+phase)
			out[i*channels+ch] = int16(math.Round(v * int16Scale))
		}
	}
	return out
}

// Ramp returns n samples counting up from start, wrapping at int16 bounds.
func Ramp(n int, start int16) []int16 {
	out := make([]int16, n)
	v := start
	for i := range out {
		out[i] = v
		v++
	}
	return out
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// AssertSamplesClose verifies two PCM buffers have equal length and differ by
// at most tolerance per sample.
func AssertSamplesClose(t *testing.T, expected, actual []int16, tolerance int, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		d := int(expected[i]) - int(actual[i])
		if d < -tolerance || d > tolerance {
			return assert.Fail(t, "sample mismatch",
				"sample %d: expected %d, got %d (tolerance %d)", i, expected[i], actual[i], tolerance)
		}
	}
	return true
}

// Channel extracts one channel from interleaved PCM.
func Channel(interleaved []int16, channels, ch int) []int16 {
	out := make([]int16, 0, len(interleaved)/channels)
	for i := ch; i < len(interleaved); i += channels {
		out = append(out, interleaved[i])
	}
	return out
}

// Peak returns the largest absolute sample value.
func Peak(samples []int16) int {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	return peak
}
