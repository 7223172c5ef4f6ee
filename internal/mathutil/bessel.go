// Package mathutil provides the filter math used to build sinc tables.
package mathutil

import (
	"math"
)

// BesselI0 computes the modified Bessel function of the first kind, order zero: I₀(x).
// This function is used in Kaiser window calculation for filter design.
//
// The implementation uses Chebyshev polynomial approximations for numerical stability:
//   - For |x| ≤ 3.75: Direct polynomial series expansion
//   - For |x| > 3.75: Asymptotic expansion with exponential scaling
//
// Reference: Abramowitz & Stegun, "Handbook of Mathematical Functions"
func BesselI0(x float64) float64 {
	ax := math.Abs(x)

	if ax < besselSmallArgThreshold {
		// I₀(x) ≈ 1 + P(t) where t = (x/3.75)²
		t := x / besselSmallArgThreshold
		t *= t

		return 1.0 + t*(besselI0Coeff1+t*(besselI0Coeff2+t*(besselI0Coeff3+
			t*(besselI0Coeff4+t*(besselI0Coeff5+t*besselI0Coeff6)))))
	}

	// I₀(x) ≈ (eˣ / √x) * P(t) where t = 3.75/x
	t := besselSmallArgThreshold / ax

	result := besselI0AsympCoeff0 + t*(besselI0AsympCoeff1+t*(besselI0AsympCoeff2+
		t*(besselI0AsympCoeff3+t*(besselI0AsympCoeff4+t*(besselI0AsympCoeff5+
			t*(besselI0AsympCoeff6+t*(besselI0AsympCoeff7+t*besselI0AsympCoeff8)))))))

	return math.Exp(ax) * result / math.Sqrt(ax)
}

// KaiserWindow is a Kaiser window with a fixed β, evaluated at arbitrary
// positions instead of on a fixed grid.
type KaiserWindow struct {
	beta   float64
	i0Beta float64
}

// NewKaiserWindow precomputes I₀(β) for the window.
func NewKaiserWindow(beta float64) KaiserWindow {
	return KaiserWindow{beta: beta, i0Beta: BesselI0(beta)}
}

// Beta returns the window's β parameter.
func (w KaiserWindow) Beta() float64 {
	return w.beta
}

// At evaluates the window at x, where x is the position relative to the
// center normalized to [-1, 1]. Values outside that range are zero.
//
//	w(x) = I₀(β * sqrt(1 - x²)) / I₀(β)
func (w KaiserWindow) At(x float64) float64 {
	ax := math.Abs(x)
	if ax > 1 {
		return 0
	}
	return BesselI0(w.beta*math.Sqrt(1-ax*ax)) / w.i0Beta
}

// WindowedSinc returns the coefficient of a lowpass kernel of length n taps
// with normalized cutoff, evaluated at tap offset x from the kernel center:
//
//	cutoff * sinc(cutoff * x) * w(2x / n)
//
// Offsets at or beyond n/2 yield zero.
func WindowedSinc(cutoff, x float64, n int, w KaiserWindow) float64 {
	ax := math.Abs(x)
	if ax < sincZeroThreshold {
		return cutoff
	}
	if ax > float64(n)/halfDivisor-sincEdgeEpsilon {
		return 0
	}
	xx := math.Pi * x * cutoff
	return cutoff * math.Sin(xx) / xx * w.At(halfDivisor*x/float64(n))
}
