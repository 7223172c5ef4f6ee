package resampler

import (
	"math"
	"math/bits"
)

// chunkPlan sizes the buffers of one chunk job.
type chunkPlan struct {
	// inFrames is the number of whole frames offered to the converter.
	inFrames int

	// outCapacity is the output buffer size in interleaved samples, an upper
	// bound on what the converter may write.
	outCapacity int

	// roomFrames is outCapacity expressed in frames.
	roomFrames int
}

// planChunk derives the buffer sizes for samples interleaved input samples:
//
//	inFrames    = floor(samples / channels)
//	outCapacity = floor(outRate * samples / inRate)
//
// The capacity is computed from the raw sample count, not the frame count,
// and saturates at math.MaxInt instead of overflowing.
func planChunk(samples, channels, inRate, outRate int) chunkPlan {
	capacity := mulDivFloor(uint64(outRate), uint64(samples), uint64(inRate))
	return chunkPlan{
		inFrames:    samples / channels,
		outCapacity: capacity,
		roomFrames:  capacity / channels,
	}
}

// mulDivFloor returns floor(a*b/d) using a 128-bit intermediate product.
func mulDivFloor(a, b, d uint64) int {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return math.MaxInt
	}
	q, _ := bits.Div64(hi, lo, d)
	if q > math.MaxInt {
		return math.MaxInt
	}
	return int(q)
}
