package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/geekuillaume/go-speex-resampler/internal/filter"
	"github.com/geekuillaume/go-speex-resampler/internal/simdops"
	"github.com/geekuillaume/go-speex-resampler/internal/speex"
)

const (
	// Display limits
	maxPhasesToShow = 5 // Maximum phases to display in detail

	responsePoints = 4096

	// passbandFraction of the band edge is treated as passband.
	passbandFraction = 0.8
)

func main() {
	quality := flag.Int("quality", speex.QualityDefault, "Converter quality (0-10)")
	flag.Parse()

	fmt.Println("=== Analyzing Filter DC Gain and Response ===")

	testRatios := []struct {
		in, out int
		name    string
	}{
		{8000, 16000, "2x upsampling"},
		{16000, 8000, "2x downsampling"},
		{44100, 48000, "CD→DAT"},
		{48000, 44100, "DAT→CD"},
		{32000, 48000, "3:2 upsampling"},
	}

	for _, test := range testRatios {
		c, err := speex.New(1, test.in, test.out, *quality)
		if err != nil {
			log.Fatalf("%s: %v", test.name, err)
		}

		fmt.Printf("\n=== %s (%d Hz -> %d Hz) ===\n", test.name, test.in, test.out)
		fmt.Printf("  Taps per phase: %d\n", c.FilterLength())
		fmt.Printf("  Phases: %d\n", c.Phases())
		if !c.Direct() {
			fmt.Println("  Interpolated table, no per-phase kernels")
			continue
		}

		// Calculate DC gain of each phase
		var totalDC float64
		minDC, maxDC := math.Inf(1), math.Inf(-1)
		kernels := make([][]float64, c.Phases())
		for phase := range c.Phases() {
			kernels[phase] = c.Kernel(phase)
			dc := simdops.Sum(kernels[phase])
			if phase < maxPhasesToShow {
				fmt.Printf("    Phase %d: DC gain = %.10f\n", phase, dc)
			}
			totalDC += dc
			minDC = min(minDC, dc)
			maxDC = max(maxDC, dc)
		}
		if c.Phases() > maxPhasesToShow {
			fmt.Printf("    ... (%d more phases)\n", c.Phases()-maxPhasesToShow)
		}

		avg := totalDC / float64(c.Phases())
		fmt.Printf("  Average DC gain: %.10f\n", avg)
		fmt.Printf("  Spread: %.3e\n", maxDC-minDC)
		fmt.Printf("  Gain error: %+.4f dB\n", 20*math.Log10(avg))

		// The prototype runs at den times the input rate; the band edge is
		// the lower of the two Nyquist frequencies.
		num, den := c.Ratio()
		edge := float64(min(num, den)) / float64(2*num*den)
		resp := filter.ComputeResponse(filter.Prototype(kernels), responsePoints)
		fmt.Printf("  Passband ripple: %.4f dB\n", resp.PassbandRipple(edge*passbandFraction))
		fmt.Printf("  Attenuation past band edge: %.1f dB\n", resp.StopbandAttenuation(edge))
		c.Destroy()
	}
}
