package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	resampler "github.com/geekuillaume/go-speex-resampler"
	"github.com/geekuillaume/go-speex-resampler/internal/analysis"
)

const (
	bitsPerSample16 = 16
	wavFormatPCM    = 1
)

// options holds the parsed command line.
type options struct {
	inputPath  string
	outputPath string
	targetRate int
	quality    int
	analyze    bool
	verbose    bool
	logger     *slog.Logger
}

type resampleStats struct {
	inputRate    int
	outputRate   int
	channels     int
	inputFrames  int64
	outputFrames int64

	inputReport  analysis.Report
	outputReport analysis.Report
}

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file        *os.File
	decoder     *wav.Decoder
	rate        int
	channels    int
	totalFrames int64
	format      *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
// Only 16-bit PCM is accepted.
func openWAVInput(path string, verbose bool) (*wavInputInfo, error) {
	// Open input file
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	// Create WAV decoder
	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	// Read format info
	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if bitDepth != bitsPerSample16 || decoder.WavAudioFormat != wavFormatPCM {
		_ = inputFile.Close()
		return nil, fmt.Errorf("unsupported WAV format: %d-bit, format tag %d (want 16-bit PCM)",
			bitDepth, decoder.WavAudioFormat)
	}

	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", format.SampleRate, format.NumChannels, bitDepth)
	}

	// Get total duration for progress reporting
	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}

	return &wavInputInfo{
		file:        inputFile,
		decoder:     decoder,
		rate:        format.SampleRate,
		channels:    format.NumChannels,
		totalFrames: int64(duration.Seconds() * float64(format.SampleRate)),
		format:      format,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	format  *audio.Format
	buf     *audio.IntBuffer
}

// createWAVOutput creates the output file and a 16-bit PCM encoder.
func createWAVOutput(path string, sampleRate, channels int) (*wavOutputWriter, error) {
	// Create output file
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	format := &audio.Format{NumChannels: channels, SampleRate: sampleRate}
	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitsPerSample16, channels, wavFormatPCM),
		format:  format,
		buf:     &audio.IntBuffer{Format: format, SourceBitDepth: bitsPerSample16},
	}, nil
}

// WriteSamples encodes interleaved samples.
func (w *wavOutputWriter) WriteSamples(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	w.buf.Data = samplesToInts(w.buf.Data[:0], samples)
	return w.encoder.Write(w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// intsToSamples converts decoded PCM to int16, saturating out-of-range values.
func intsToSamples(dst []int16, src []int) []int16 {
	for _, v := range src {
		dst = append(dst, int16(max(math.MinInt16, min(math.MaxInt16, v))))
	}
	return dst
}

func samplesToInts(dst []int, src []int16) []int {
	for _, v := range src {
		dst = append(dst, int(v))
	}
	return dst
}

// chunkPipeline keeps up to depth chunks converting while earlier results
// are written out in order.
type chunkPipeline struct {
	r       *resampler.Resampler
	out     *wavOutputWriter
	depth   int
	pending []*resampler.Future

	written int64 // samples
	onWrite func([]int16)
}

// submit queues a chunk, first writing the oldest result if the pipeline is
// full.
func (p *chunkPipeline) submit(ctx context.Context, chunk []int16) error {
	if len(p.pending) >= p.depth {
		if err := p.writeOldest(ctx); err != nil {
			return err
		}
	}
	f, err := p.r.Process(chunk)
	if err != nil {
		return err
	}
	p.pending = append(p.pending, f)
	return nil
}

// drain flushes the filter tail and writes every pending result.
func (p *chunkPipeline) drain(ctx context.Context) error {
	tail, err := p.r.Flush()
	if err != nil {
		return err
	}
	p.pending = append(p.pending, tail)

	for len(p.pending) > 0 {
		if err := p.writeOldest(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *chunkPipeline) writeOldest(ctx context.Context) error {
	f := p.pending[0]
	p.pending = p.pending[1:]

	samples, err := f.Wait(ctx)
	if err != nil {
		return fmt.Errorf("resampling failed: %w", err)
	}
	if p.onWrite != nil {
		p.onWrite(samples)
	}
	if err := p.out.WriteSamples(samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	p.written += int64(len(samples))
	return nil
}

// capture keeps the first limit samples passed to add.
type capture struct {
	limit   int
	samples []int16
}

func (c *capture) add(s []int16) {
	if room := c.limit - len(c.samples); room > 0 {
		c.samples = append(c.samples, s[:min(room, len(s))]...)
	}
}

func resampleWAV(ctx context.Context, opts options) (stats *resampleStats, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(opts.inputPath, opts.verbose)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	// Check if resampling is needed
	if input.rate == opts.targetRate {
		return nil, fmt.Errorf("input already at target rate %d Hz", opts.targetRate)
	}

	// 2. Create resampler
	var ropts []resampler.Option
	if opts.logger != nil {
		ropts = append(ropts, resampler.WithLogger(opts.logger))
	}
	r, err := resampler.New(&resampler.Config{
		Channels: input.channels,
		InRate:   input.rate,
		OutRate:  opts.targetRate,
		Quality:  opts.quality,
	}, ropts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	// 3. Create output writer
	output, err := createWAVOutput(opts.outputPath, opts.targetRate, input.channels)
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (important for WAV header updates)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	stats = &resampleStats{
		inputRate:  input.rate,
		outputRate: opts.targetRate,
		channels:   input.channels,
	}

	inCapture := &capture{limit: analyzeSeconds * input.rate * input.channels}
	outCapture := &capture{limit: analyzeSeconds * opts.targetRate * input.channels}

	pipeline := &chunkPipeline{r: r, out: output, depth: maxInFlight}
	if opts.analyze {
		pipeline.onWrite = outCapture.add
	}
	progress := newProgressTracker(input.totalFrames, opts.verbose)

	// 4. Main processing loop
	intBuffer := &audio.IntBuffer{
		Data:   make([]int, chunkFrames*input.channels),
		Format: input.format,
	}
	var inputSamples int64
	for {
		// n counts samples, not frames
		n, err := input.decoder.PCMBuffer(intBuffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}

		chunk := intsToSamples(make([]int16, 0, n), intBuffer.Data[:n])
		if opts.analyze {
			inCapture.add(chunk)
		}
		if err := pipeline.submit(ctx, chunk); err != nil {
			return nil, err
		}

		inputSamples += int64(n)
		progress.reportIfNeeded(inputSamples / int64(input.channels))
	}

	// 5. Flush remaining samples
	if err := pipeline.drain(ctx); err != nil {
		return nil, err
	}

	stats.inputFrames = inputSamples / int64(input.channels)
	stats.outputFrames = pipeline.written / int64(input.channels)
	if opts.analyze {
		stats.inputReport = analysis.Analyze(inCapture.samples, input.channels, input.rate)
		stats.outputReport = analysis.Analyze(outCapture.samples, input.channels, opts.targetRate)
	}
	return stats, nil
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	verbose      bool
}

// newProgressTracker creates a new progress tracker.
func newProgressTracker(totalFrames int64, verbose bool) *progressTracker {
	return &progressTracker{
		totalFrames: totalFrames,
		verbose:     verbose,
	}
}

// reportIfNeeded reports progress if threshold crossed.
func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if !p.verbose || p.totalFrames == 0 {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		log.Printf("Progress: %d%%", progress)
		p.lastProgress = progress
	}
}

func printReport(label string, rep analysis.Report) {
	fmt.Printf("%s (first %d frames at %d Hz):\n", label, rep.Frames, rep.SampleRate)
	for ch, c := range rep.Channels {
		fmt.Printf("  ch%d: RMS %.1f dBFS, peak %.3f, dominant %.1f Hz\n",
			ch, c.RMSDBFS, c.Peak, c.DominantHz)
	}
}
