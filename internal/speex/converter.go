// Package speex implements a windowed-sinc sample rate converter for
// interleaved 16-bit PCM, modelled on the speexdsp resampler.
//
// The rate ratio is reduced to num/den and every output sample is the dot
// product of the channel history with one of den polyphase sinc kernels.
// When the kernel table for that many phases would be too large, an
// oversampled table is used instead and the phase is cubic-interpolated.
//
// A Converter keeps per-channel filter memory between calls, so chunks of a
// stream must be processed in order. It is not safe for concurrent use.
package speex

import (
	"math"

	"github.com/geekuillaume/go-speex-resampler/internal/mathutil"
	"github.com/geekuillaume/go-speex-resampler/internal/simdops"
)

// Sizing limits.
const (
	// bufferSize is the number of new input frames staged per channel per pass.
	bufferSize = 160

	// scratchFrames bounds output frames computed per pass.
	scratchFrames = 1024

	// maxFilterLength rejects ratios that would need absurdly long kernels.
	maxFilterLength = 1 << 15

	// maxDirectTable is the largest phase table (in taps) built in direct mode.
	maxDirectTable = 1 << 18

	// interpGuard pads the interpolated table on both ends.
	interpGuard = 4

	filterLengthAlign = 8

	// maxReducedRate bounds both terms of the reduced ratio so that phase
	// and table-size arithmetic cannot overflow.
	maxReducedRate = math.MaxInt32
)

// Converter is a fixed-ratio multi-channel sample rate converter.
type Converter struct {
	channels int
	inRate   int
	outRate  int
	quality  int

	// Reduced ratio: each output advances the input by num/den samples.
	numRate     int
	denRate     int
	intAdvance  int
	fracAdvance int

	filtLen      int
	memAllocSize int
	cutoff       float64
	oversample   int
	direct       bool
	sincTable    []float64

	// Per-channel filter state.
	lastSample  []int
	sampFracNum []int
	mem         []float64

	scratch   []float64
	destroyed bool
}

// New creates a converter. Quality ranges from QualityMin to QualityMax.
// The returned error, if any, is a Status.
func New(channels, inRate, outRate, quality int) (*Converter, error) {
	if channels < 1 || inRate < 1 || outRate < 1 {
		return nil, StatusInvalidArg
	}
	if quality < QualityMin || quality > QualityMax {
		return nil, StatusInvalidArg
	}

	g := gcd(inRate, outRate)
	c := &Converter{
		channels:    channels,
		inRate:      inRate,
		outRate:     outRate,
		quality:     quality,
		numRate:     inRate / g,
		denRate:     outRate / g,
		lastSample:  make([]int, channels),
		sampFracNum: make([]int, channels),
		scratch:     make([]float64, scratchFrames),
	}

	if err := c.updateFilter(); err != nil {
		return nil, err
	}
	return c, nil
}

// updateFilter designs the kernel table for the current ratio and quality.
func (c *Converter) updateFilter() error {
	if c.numRate > maxReducedRate || c.denRate > maxReducedRate {
		return StatusAllocFailed
	}

	q := qualityTable[c.quality]
	filtLen := int64(q.baseLength)
	c.oversample = q.oversample

	if c.numRate > c.denRate {
		// Downsampling: lower the cutoff to the output Nyquist and stretch
		// the kernel by the same factor.
		c.cutoff = q.downsampleBand * float64(c.denRate) / float64(c.numRate)
		filtLen = filtLen * int64(c.numRate) / int64(c.denRate)
		filtLen = ((filtLen - 1) &^ (filterLengthAlign - 1)) + filterLengthAlign
		for step := 2; step <= 16 && int64(step)*int64(c.denRate) < int64(c.numRate); step *= 2 {
			c.oversample >>= 1
		}
		c.oversample = max(c.oversample, 1)
	} else {
		c.cutoff = q.upsampleBand
	}

	if filtLen > maxFilterLength {
		return StatusAllocFailed
	}
	c.filtLen = int(filtLen)

	window := mathutil.NewKaiserWindow(q.windowBeta)
	n := c.filtLen
	c.direct = int64(n)*int64(c.denRate) <= maxDirectTable

	if c.direct {
		c.sincTable = make([]float64, n*c.denRate)
		for i := range c.denRate {
			phase := float64(i) / float64(c.denRate)
			for j := range n {
				x := float64(j-n/2+1) - phase
				c.sincTable[i*n+j] = mathutil.WindowedSinc(c.cutoff, x, n, window)
			}
		}
	} else {
		c.sincTable = make([]float64, n*c.oversample+2*interpGuard)
		for i := -interpGuard; i < c.oversample*n+interpGuard; i++ {
			x := float64(i)/float64(c.oversample) - float64(n/2)
			c.sincTable[i+interpGuard] = mathutil.WindowedSinc(c.cutoff, x, n, window)
		}
	}

	c.intAdvance = c.numRate / c.denRate
	c.fracAdvance = c.numRate % c.denRate

	c.memAllocSize = n - 1 + bufferSize
	c.mem = make([]float64, c.channels*c.memAllocSize)
	return nil
}

// ProcessInterleaved resamples interleaved input into out. The number of
// frames available is len(in)/channels, the room available is
// len(out)/channels. It returns the frames per channel consumed from in and
// produced into out. Input that was not consumed has not entered the filter
// and must be offered again on the next call.
func (c *Converter) ProcessInterleaved(in, out []int16) (consumed, produced int, err error) {
	if c.destroyed {
		return 0, 0, StatusBadState
	}
	if len(in) > 0 && len(out) > 0 && &in[0] == &out[0] {
		return 0, 0, StatusPtrOverlap
	}

	inFrames := len(in) / c.channels
	outFrames := len(out) / c.channels
	if uint64(inFrames) > math.MaxUint32 || uint64(outFrames) > math.MaxUint32 {
		return 0, 0, StatusOverflow
	}

	for ch := range c.channels {
		consumed, produced = c.processChannel(ch, in, inFrames, out, outFrames)
	}
	return consumed, produced, nil
}

// processChannel runs one channel of interleaved input through its filter.
func (c *Converter) processChannel(ch int, in []int16, inFrames int, out []int16, outFrames int) (int, int) {
	stride := c.channels
	x := c.mem[ch*c.memAllocSize : (ch+1)*c.memAllocSize]
	filtOffs := c.filtLen - 1
	xlen := c.memAllocSize - filtOffs

	ilen, olen := inFrames, outFrames
	inPos, outPos := 0, 0
	for ilen > 0 && olen > 0 {
		ichunk := min(ilen, xlen)
		ochunk := min(olen, len(c.scratch))

		simdops.LoadStrided(x[filtOffs:filtOffs+ichunk], in[inPos*stride+ch:], stride)

		used, made := c.processNative(ch, x, ichunk, c.scratch[:ochunk])
		for j := range made {
			out[(outPos+j)*stride+ch] = toInt16(c.scratch[j])
		}

		ilen -= used
		olen -= made
		inPos += used
		outPos += made
	}

	return inFrames - ilen, outFrames - olen
}

// processNative filters inLen staged samples of x into out and shifts the
// consumed samples out of the history.
func (c *Converter) processNative(ch int, x []float64, inLen int, out []float64) (consumed, produced int) {
	if c.direct {
		produced = c.directKernel(ch, x, inLen, out)
	} else {
		produced = c.interpolateKernel(ch, x, inLen, out)
	}

	consumed = inLen
	if c.lastSample[ch] < inLen {
		consumed = c.lastSample[ch]
	}
	c.lastSample[ch] -= consumed

	copy(x[:c.filtLen-1], x[consumed:consumed+c.filtLen-1])
	return consumed, produced
}

func (c *Converter) directKernel(ch int, x []float64, inLen int, out []float64) int {
	n := c.filtLen
	last := c.lastSample[ch]
	frac := c.sampFracNum[ch]

	produced := 0
	for last < inLen && produced < len(out) {
		taps := c.sincTable[frac*n : frac*n+n]
		out[produced] = simdops.Dot(taps, x[last:last+n])
		produced++

		last += c.intAdvance
		frac += c.fracAdvance
		if frac >= c.denRate {
			frac -= c.denRate
			last++
		}
	}

	c.lastSample[ch] = last
	c.sampFracNum[ch] = frac
	return produced
}

func (c *Converter) interpolateKernel(ch int, x []float64, inLen int, out []float64) int {
	n := c.filtLen
	last := c.lastSample[ch]
	frac := c.sampFracNum[ch]
	table := c.sincTable

	produced := 0
	for last < inLen && produced < len(out) {
		offset := frac * c.oversample / c.denRate
		mu := float64((frac*c.oversample)%c.denRate) / float64(c.denRate)

		var a0, a1, a2, a3 float64
		for j := range n {
			s := x[last+j]
			base := interpGuard + (j+1)*c.oversample - offset
			a0 += s * table[base-2]
			a1 += s * table[base-1]
			a2 += s * table[base]
			a3 += s * table[base+1]
		}

		w0, w1, w2, w3 := cubicCoefficients(mu)
		out[produced] = w0*a0 + w1*a1 + w2*a2 + w3*a3
		produced++

		last += c.intAdvance
		frac += c.fracAdvance
		if frac >= c.denRate {
			frac -= c.denRate
			last++
		}
	}

	c.lastSample[ch] = last
	c.sampFracNum[ch] = frac
	return produced
}

// cubicCoefficients returns the Lagrange weights for fractional position mu
// between the second and third of four table points.
func cubicCoefficients(mu float64) (w0, w1, w2, w3 float64) {
	mu2 := mu * mu
	mu3 := mu2 * mu
	w0 = -mu/6 + mu3/6
	w1 = mu + mu2/2 - mu3/2
	w3 = -mu/3 + mu2/2 - mu3/6
	w2 = 1 - w0 - w1 - w3
	return w0, w1, w2, w3
}

// Rates returns the input and output sample rates.
func (c *Converter) Rates() (inRate, outRate int) {
	return c.inRate, c.outRate
}

// Ratio returns the reduced rate fraction in/out.
func (c *Converter) Ratio() (num, den int) {
	return c.numRate, c.denRate
}

// Channels returns the configured channel count.
func (c *Converter) Channels() int {
	return c.channels
}

// Quality returns the configured quality level.
func (c *Converter) Quality() int {
	return c.quality
}

// FilterLength returns the number of taps per polyphase kernel.
func (c *Converter) FilterLength() int {
	return c.filtLen
}

// Direct reports whether a full phase table is used instead of interpolation.
func (c *Converter) Direct() bool {
	return c.direct
}

// Phases returns the number of polyphase kernels, the reduced output rate.
func (c *Converter) Phases() int {
	return c.denRate
}

// Kernel returns a copy of the taps used for the given phase in direct mode,
// or nil when the converter interpolates.
func (c *Converter) Kernel(phase int) []float64 {
	if !c.direct || phase < 0 || phase >= c.denRate || c.sincTable == nil {
		return nil
	}
	n := c.filtLen
	return append([]float64(nil), c.sincTable[phase*n:phase*n+n]...)
}

// InputLatency returns the filter delay in input samples.
func (c *Converter) InputLatency() int {
	return c.filtLen / 2
}

// OutputLatency returns the filter delay in output samples.
func (c *Converter) OutputLatency() int {
	return ((c.filtLen/2)*c.denRate + (c.numRate >> 1)) / c.numRate
}

// SkipZeros advances every channel past the leading filter delay so that
// the first output sample lines up with the first input sample.
func (c *Converter) SkipZeros() {
	for ch := range c.channels {
		c.lastSample[ch] = c.filtLen / 2
	}
}

// Reset clears the filter memory of every channel.
func (c *Converter) Reset() {
	for ch := range c.channels {
		c.lastSample[ch] = 0
		c.sampFracNum[ch] = 0
	}
	clear(c.mem)
}

// Destroy releases the filter tables. Any later ProcessInterleaved call
// fails with StatusBadState.
func (c *Converter) Destroy() {
	c.destroyed = true
	c.sincTable = nil
	c.mem = nil
	c.scratch = nil
}

// toInt16 rounds and saturates a filter output to int16.
func toInt16(v float64) int16 {
	switch {
	case v < -32767.5:
		return math.MinInt16
	case v > 32766.5:
		return math.MaxInt16
	default:
		return int16(math.Floor(0.5 + v))
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
