// Package simdops wraps the SIMD kernels used by the sinc filter inner loop.
//
// Only float64 is supported: the converter accumulates int16 input in
// float64 history buffers so one precision path is enough.
package simdops

import (
	"github.com/tphakala/simd/cpu"
	"github.com/tphakala/simd/f64"
)

// Dot returns the dot product of a and b over the shorter of the two.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return f64.DotProductUnsafe(a[:n], b[:n])
}

// Sum returns the sum of all elements.
func Sum(a []float64) float64 {
	return f64.Sum(a)
}

// Info describes the SIMD instruction set selected at runtime.
func Info() string {
	return cpu.Info()
}

// LoadStrided converts every stride-th int16 of src, starting at src[0],
// into dst. It returns the number of samples written.
func LoadStrided(dst []float64, src []int16, stride int) int {
	n := 0
	for i := 0; i < len(src) && n < len(dst); i += stride {
		dst[n] = float64(src[i])
		n++
	}
	return n
}
