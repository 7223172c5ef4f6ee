package resampler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/geekuillaume/go-speex-resampler/internal/pipeline"
	"github.com/geekuillaume/go-speex-resampler/internal/speex"
	"github.com/geekuillaume/go-speex-resampler/internal/worker"
)

// Quality bounds accepted from callers.
const (
	MinQuality     = 1
	MaxQuality     = 10
	DefaultQuality = 7
)

// Common errors returned by the resampler.
var (
	// ErrValidation indicates malformed arguments. It is always returned
	// synchronously, before any work is scheduled.
	ErrValidation = errors.New("invalid argument")

	// ErrInit indicates the converter rejected the configuration.
	ErrInit = errors.New("resampler initialization failed")

	// ErrProcessing indicates the converter failed on a chunk.
	ErrProcessing = errors.New("resampler processing failed")

	// ErrAllocation indicates a chunk's output buffer exceeds the size limit.
	ErrAllocation = errors.New("output buffer allocation failed")

	// ErrClosed indicates the resampler has already been closed.
	ErrClosed = errors.New("resampler closed")

	// ErrUnknownHandle indicates a handle that was never issued or has been
	// destroyed.
	ErrUnknownHandle = errors.New("unknown resampler handle")
)

// ValidationError names the argument that failed validation.
type ValidationError struct {
	Arg    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Arg, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Config holds resampling configuration. It is immutable once passed to New.
type Config struct {
	// Channels is the number of interleaved channels.
	Channels int

	// InRate is the sample rate of the input in Hz.
	InRate int

	// OutRate is the sample rate of the output in Hz.
	OutRate int

	// Quality ranges from MinQuality to MaxQuality. Zero selects
	// DefaultQuality.
	Quality int
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Channels < 1 {
		return &ValidationError{Arg: "channels", Reason: "must be at least 1"}
	}
	if c.Channels > maxChannels {
		return &ValidationError{Arg: "channels", Reason: fmt.Sprintf("must be at most %d", maxChannels)}
	}
	if c.InRate < 1 {
		return &ValidationError{Arg: "inRate", Reason: "must be at least 1"}
	}
	if c.OutRate < 1 {
		return &ValidationError{Arg: "outRate", Reason: "must be at least 1"}
	}
	if c.Quality != 0 {
		if err := validateQuality(c.Quality); err != nil {
			return err
		}
	}
	return nil
}

func validateQuality(q int) error {
	if q < MinQuality || q > MaxQuality {
		return &ValidationError{
			Arg:    "quality",
			Reason: fmt.Sprintf("must be in [%d, %d], got %d", MinQuality, MaxQuality, q),
		}
	}
	return nil
}

// converter is the stateful rate conversion primitive behind a Resampler.
// Implementations need not be safe for concurrent use.
type converter interface {
	ProcessInterleaved(in, out []int16) (consumed, produced int, err error)
	Rates() (inRate, outRate int)
	InputLatency() int
	OutputLatency() int
	Reset()
	Destroy()
}

func newSpeexConverter(channels, inRate, outRate, quality int) (converter, error) {
	c, err := speex.New(channels, inRate, outRate, quality)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Stats is a snapshot of a resampler's counters.
type Stats struct {
	ChunksCompleted int64
	ChunksFailed    int64
	// SamplesIn counts samples passed to Process. Flush padding is not
	// included.
	SamplesIn       int64
	SamplesOut      int64
	// Pending is the number of jobs queued behind the running one.
	Pending         int
}

// Resampler converts one stream of interleaved 16-bit PCM between two
// fixed sample rates.
//
// Process never blocks: each chunk becomes a job on a shared worker pool and
// its result is delivered through a Future. Jobs of one Resampler run one at
// a time in submission order, because every chunk advances the filter
// memory. Jobs of different Resamplers run in parallel.
type Resampler struct {
	cfg      Config
	conv     converter
	serial   *worker.Serial
	notify   *worker.Serial
	logger   *slog.Logger
	maxChunk int

	mu     sync.Mutex
	closed bool

	// carry holds input the converter has not consumed yet. Only jobs touch
	// it, and jobs never overlap.
	carry *pipeline.SampleBuffer

	chunksCompleted atomic.Int64
	chunksFailed    atomic.Int64
	samplesIn       atomic.Int64
	samplesOut      atomic.Int64
}

// New creates a resampler. A nil Config or invalid field fails with an error
// wrapping ErrValidation. If the converter refuses the configuration the
// error wraps ErrInit.
func New(config *Config, opts ...Option) (*Resampler, error) {
	if config == nil {
		return nil, &ValidationError{Arg: "config", Reason: "is nil"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	cfg := *config
	if cfg.Quality == 0 {
		cfg.Quality = DefaultQuality
	}

	conv, err := o.newConverter(cfg.Channels, cfg.InRate, cfg.OutRate, cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}

	r := &Resampler{
		cfg:      cfg,
		conv:     conv,
		serial:   worker.NewSerial(o.pool),
		notify:   worker.NewSerial(o.pool),
		maxChunk: o.maxChunkSamples,
		carry:    pipeline.NewSampleBuffer(carryFrames * cfg.Channels),
		logger: o.logger.With(
			"component", "resampler",
			"channels", cfg.Channels,
			"in_rate", cfg.InRate,
			"out_rate", cfg.OutRate,
			"quality", cfg.Quality,
		),
	}
	r.logger.Debug("resampler created")
	return r, nil
}

// Config returns the configuration with defaults applied.
func (r *Resampler) Config() Config {
	return r.cfg
}

// Channels returns the channel count fixed at creation.
func (r *Resampler) Channels() int {
	return r.cfg.Channels
}

// Rates returns the input and output sample rates.
func (r *Resampler) Rates() (inRate, outRate int) {
	return r.conv.Rates()
}

// Latency returns the filter delay in input and output frames.
func (r *Resampler) Latency() (input, output int) {
	return r.conv.InputLatency(), r.conv.OutputLatency()
}

// Stats returns a snapshot of the resampler's counters.
func (r *Resampler) Stats() Stats {
	return Stats{
		ChunksCompleted: r.chunksCompleted.Load(),
		ChunksFailed:    r.chunksFailed.Load(),
		SamplesIn:       r.samplesIn.Load(),
		SamplesOut:      r.samplesOut.Load(),
		Pending:         r.serial.Len(),
	}
}

// Process queues a chunk of interleaved samples and returns immediately.
// The input is copied, so the caller may reuse it at once.
//
// The Future resolves with the converted samples, trimmed to what the
// converter produced. Input the converter did not consume, including a
// trailing partial frame, is kept and placed ahead of the next chunk.
func (r *Resampler) Process(input []int16) (*Future, error) {
	// A chunk whose own capacity is already too large can be refused now.
	plan := planChunk(len(input), r.cfg.Channels, r.cfg.InRate, r.cfg.OutRate)
	if plan.outCapacity > r.maxChunk {
		return nil, r.allocationError(plan.outCapacity)
	}

	in := slices.Clone(input)
	return r.submit(func() Result {
		res := r.convert(in)
		if res.Err == nil {
			r.samplesIn.Add(int64(len(in)))
		}
		return res
	})
}

// Flush pushes enough silence through the filter to emit the samples still
// held in its delay line. The resampler stays usable afterwards.
func (r *Resampler) Flush() (*Future, error) {
	silence := make([]int16, r.conv.InputLatency()*r.cfg.Channels)
	return r.submit(func() Result { return r.convert(silence) })
}

// Reset clears the filter memory and any carried-over input once every job
// queued before it has run.
func (r *Resampler) Reset() (*Future, error) {
	return r.submit(func() Result {
		r.conv.Reset()
		r.carry.Clear()
		return Result{}
	})
}

// Close waits for queued jobs to finish and releases the converter. Calls to
// Process after Close, and a second Close, return ErrClosed. Then callbacks
// may still be running when Close returns.
func (r *Resampler) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	r.mu.Unlock()

	r.serial.Wait()
	r.conv.Destroy()
	r.carry.Clear()

	r.logger.Debug("resampler closed",
		"chunks_completed", r.chunksCompleted.Load(),
		"chunks_failed", r.chunksFailed.Load())
	return nil
}

// submit queues job behind earlier jobs of this resampler.
func (r *Resampler) submit(job func() Result) (*Future, error) {
	f := newFuture()
	f.dispatch = r.dispatch

	// Holding mu across Submit orders every accepted job before Close's Wait.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if err := r.serial.Submit(func() { f.resolve(job()) }); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return f, nil
}

// convert runs one chunk through the converter. It must only be called from
// a job.
func (r *Resampler) convert(input []int16) (res Result) {
	channels := r.cfg.Channels

	held := r.carry.Available()

	plan := planChunk(held+len(input), channels, r.cfg.InRate, r.cfg.OutRate)
	if plan.outCapacity > r.maxChunk {
		return r.fail(r.allocationError(plan.outCapacity))
	}

	// A failed chunk is dropped; the carry-over is left as it was.
	r.carry.Write(input)
	defer func() {
		if p := recover(); p != nil {
			r.carry.Truncate(held)
			res = r.fail(fmt.Errorf("%w: converter panic: %v", ErrProcessing, p))
		}
	}()

	out := make([]int16, plan.outCapacity)
	consumed, produced, err := r.conv.ProcessInterleaved(r.carry.Peek()[:plan.inFrames*channels], out)
	if err != nil {
		r.carry.Truncate(held)
		return r.fail(fmt.Errorf("%w: %w", ErrProcessing, err))
	}

	r.carry.Discard(consumed * channels)
	samples := slices.Clone(out[:produced*channels])

	r.chunksCompleted.Add(1)
	r.samplesOut.Add(int64(len(samples)))
	return Result{Samples: samples, Consumed: consumed}
}

// dispatch runs Then callbacks on their own queue, outside the job queue.
func (r *Resampler) dispatch(run func()) {
	if err := r.notify.Submit(run); err != nil {
		run()
	}
}

func (r *Resampler) fail(err error) Result {
	r.chunksFailed.Add(1)
	r.logger.Warn("chunk failed", "error", err)
	return Result{Err: err}
}

func (r *Resampler) allocationError(capacity int) error {
	return fmt.Errorf("%w: %d samples exceeds limit of %d", ErrAllocation, capacity, r.maxChunk)
}
