package resampler

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geekuillaume/go-speex-resampler/internal/speex"
	"github.com/geekuillaume/go-speex-resampler/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverter stands in for the speex converter so tests can observe
// buffer sizes and inject failures.
type fakeConverter struct {
	channels        int
	inRate, outRate int

	// process overrides the default pass-through behavior.
	process func(call int, in, out []int16) (int, int, error)
	// gate, when set, blocks every call until it is closed.
	gate    chan struct{}

	mu             sync.Mutex
	calls          int
	outLens        []int
	destroyed      bool
	callsAtDestroy int

	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeConverter) ProcessInterleaved(in, out []int16) (int, int, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)

	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	call := f.calls
	f.calls++
	f.outLens = append(f.outLens, len(out))
	f.mu.Unlock()

	if f.process != nil {
		return f.process(call, in, out)
	}
	frames := min(len(in), len(out)) / f.channels
	copy(out, in[:frames*f.channels])
	return frames, frames, nil
}

func (f *fakeConverter) Rates() (int, int) { return f.inRate, f.outRate }

func (f *fakeConverter) InputLatency() int { return 4 }

func (f *fakeConverter) OutputLatency() int { return 4 }

func (f *fakeConverter) Reset() {}

func (f *fakeConverter) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	f.callsAtDestroy = f.calls
}

func withConverter(c converter) Option {
	return func(o *options) {
		o.newConverter = func(int, int, int, int) (converter, error) { return c, nil }
	}
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool(4)
	t.Cleanup(p.Close)
	return p
}

func newTestResampler(t *testing.T, cfg Config, opts ...Option) *Resampler {
	t.Helper()
	opts = append([]Option{WithPool(newTestPool(t))}, opts...)
	r, err := New(&cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func wait(t *testing.T, f *Future) []int16 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := f.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		arg  string
	}{
		{"nil config", nil, "config"},
		{"zero channels", &Config{Channels: 0, InRate: 8000, OutRate: 16000}, "channels"},
		{"too many channels", &Config{Channels: 257, InRate: 8000, OutRate: 16000}, "channels"},
		{"zero input rate", &Config{Channels: 1, InRate: 0, OutRate: 16000}, "inRate"},
		{"negative output rate", &Config{Channels: 1, InRate: 8000, OutRate: -1}, "outRate"},
		{"quality too high", &Config{Channels: 1, InRate: 8000, OutRate: 16000, Quality: 11}, "quality"},
		{"negative quality", &Config{Channels: 1, InRate: 8000, OutRate: 16000, Quality: -3}, "quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg)
			assert.Nil(t, r)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.arg, verr.Arg)
		})
	}
}

func TestNew_DefaultQuality(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 16000})
	assert.Equal(t, DefaultQuality, r.Config().Quality)
}

func TestNew_InitError(t *testing.T) {
	for _, rates := range [][2]int{{1_000_000, 1}, {math.MaxInt, 1}, {1, math.MaxInt}} {
		r, err := New(&Config{Channels: 1, InRate: rates[0], OutRate: rates[1]})
		assert.Nil(t, r)
		require.ErrorIs(t, err, ErrInit, "rates %v", rates)
		assert.NotErrorIs(t, err, ErrValidation)

		var status speex.Status
		require.True(t, errors.As(err, &status))
		assert.Equal(t, speex.StatusAllocFailed, status)
	}
}

func TestResampler_RatesAndLatency(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 2, InRate: 8000, OutRate: 16000})

	in, out := r.Rates()
	assert.Equal(t, 8000, in)
	assert.Equal(t, 16000, out)

	inLat, outLat := r.Latency()
	assert.Positive(t, inLat)
	assert.Equal(t, 2*inLat, outLat)
}

func TestProcess_IdentityRatioKeepsLength(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 1, InRate: 16000, OutRate: 16000})

	in := testutil.Sine(1000, 1, 440, 16000, 0.5)
	f, err := r.Process(in)
	require.NoError(t, err)

	res := f.Result()
	require.NoError(t, res.Err)
	assert.Len(t, res.Samples, 1000)
	assert.Equal(t, 1000, res.Consumed)
}

func TestProcess_CapacityBoundAndTrim(t *testing.T) {
	t.Run("real converter", func(t *testing.T) {
		r := newTestResampler(t, Config{Channels: 2, InRate: 8000, OutRate: 16000})

		out := wait(t, mustProcess(t, r, testutil.Sine(50, 2, 440, 8000, 0.5)))
		assert.LessOrEqual(t, len(out), 200)
		assert.Zero(t, len(out)%2)
	})

	t.Run("trimmed to produced frames", func(t *testing.T) {
		fake := &fakeConverter{
			channels: 2, inRate: 8000, outRate: 16000,
			process: func(_ int, in, out []int16) (int, int, error) {
				for i := range out {
					out[i] = 7
				}
				return len(in) / 2, 37, nil
			},
		}
		r := newTestResampler(t, Config{Channels: 2, InRate: 8000, OutRate: 16000}, withConverter(fake))

		out := wait(t, mustProcess(t, r, make([]int16, 100)))
		assert.Len(t, out, 74)
		assert.Equal(t, []int{200}, fake.outLens)
	})
}

func TestProcess_CarriesPartialFrame(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 2, InRate: 16000, OutRate: 16000})

	in := testutil.Sine(4, 2, 440, 16000, 0.5)
	first := mustProcess(t, r, in[:5])
	second := mustProcess(t, r, in[5:])

	res := first.Result()
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Consumed)
	assert.Len(t, res.Samples, 4)

	assert.Len(t, wait(t, second), 4)
}

// Chunks submitted back to back must give the same audio as awaiting each
// before submitting the next, and must resolve in submission order.
func TestProcess_FIFOMatchesSerialSubmission(t *testing.T) {
	cfg := Config{Channels: 2, InRate: 44100, OutRate: 48000}
	signal := testutil.Sine(4410, 2, 1000, 44100, 0.5)
	c1, c2 := signal[:4410], signal[4410:]

	pipelined := newTestResampler(t, cfg)
	f1 := mustProcess(t, pipelined, c1)
	f2 := mustProcess(t, pipelined, c2)

	order := make(chan int, 2)
	f1.Then(func(Result) { order <- 1 })
	f2.Then(func(Result) { order <- 2 })

	serial := newTestResampler(t, cfg)
	want1 := wait(t, mustProcess(t, serial, c1))
	want2 := wait(t, mustProcess(t, serial, c2))

	assert.Equal(t, want1, wait(t, f1))
	assert.Equal(t, want2, wait(t, f2))

	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestProcess_NeverOverlapsOnOneInstance(t *testing.T) {
	fake := &fakeConverter{channels: 1, inRate: 8000, outRate: 8000}
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000}, withConverter(fake))

	var wg sync.WaitGroup
	futures := make(chan *Future, 400)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				f, err := r.Process(make([]int16, 64))
				if err == nil {
					futures <- f
				}
			}
		}()
	}
	wg.Wait()
	close(futures)

	n := 0
	for f := range futures {
		wait(t, f)
		n++
	}
	assert.Equal(t, 400, n)
	assert.False(t, fake.overlap.Load())
}

func TestProcess_IndependentInstancesInParallel(t *testing.T) {
	cfg := Config{Channels: 2, InRate: 48000, OutRate: 16000, Quality: 5}
	pool := newTestPool(t)

	chunks := func(freq float64) [][]int16 {
		signal := testutil.Sine(4800, 2, freq, 48000, 0.4)
		var out [][]int16
		for start := 0; start < len(signal); start += 960 {
			out = append(out, signal[start:min(start+960, len(signal))])
		}
		return out
	}

	reference := func(freq float64) []int16 {
		r, err := New(&cfg, WithPool(pool))
		require.NoError(t, err)
		defer r.Close()
		var out []int16
		for _, c := range chunks(freq) {
			out = append(out, wait(t, mustProcess(t, r, c))...)
		}
		return out
	}

	freqs := []float64{300, 700, 1100, 1900}
	got := make([][]int16, len(freqs))
	var wg sync.WaitGroup
	for i, freq := range freqs {
		r, err := New(&cfg, WithPool(pool))
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.Close()

			var futures []*Future
			for _, c := range chunks(freq) {
				f, err := r.Process(c)
				if err != nil {
					return
				}
				futures = append(futures, f)
			}
			for _, f := range futures {
				got[i] = append(got[i], f.Result().Samples...)
			}
		}()
	}
	wg.Wait()

	for i, freq := range freqs {
		assert.Equal(t, reference(freq), got[i], "instance %d", i)
	}
}

func TestProcess_ChunkingDoesNotChangeAudio(t *testing.T) {
	cfg := Config{Channels: 2, InRate: 44100, OutRate: 48000}
	signal := testutil.Sine(8820, 2, 1000, 44100, 0.5)

	whole := newTestResampler(t, cfg)
	want := wait(t, mustProcess(t, whole, signal))

	chunked := newTestResampler(t, cfg)
	var futures []*Future
	// Odd sizes split frames across chunks.
	for start := 0; start < len(signal); start += 1001 {
		futures = append(futures, mustProcess(t, chunked, signal[start:min(start+1001, len(signal))]))
	}
	var got []int16
	for _, f := range futures {
		got = append(got, wait(t, f)...)
	}

	n := min(len(want), len(got))
	assert.InDelta(t, len(want), len(got), 8)
	assert.Equal(t, want[:n], got[:n])
}

func TestProcess_ErrorIsRecoverable(t *testing.T) {
	fake := &fakeConverter{
		channels: 1, inRate: 8000, outRate: 8000,
		process: func(call int, in, out []int16) (int, int, error) {
			if call == 1 {
				return 0, 0, speex.StatusOverflow
			}
			n := copy(out, in)
			return n, n, nil
		},
	}
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000}, withConverter(fake))

	ok1 := mustProcess(t, r, []int16{1, 2, 3})
	bad := mustProcess(t, r, []int16{4, 5, 6})
	ok2 := mustProcess(t, r, []int16{7, 8, 9})

	assert.Equal(t, []int16{1, 2, 3}, wait(t, ok1))

	res := bad.Result()
	assert.Nil(t, res.Samples)
	require.ErrorIs(t, res.Err, ErrProcessing)
	assert.ErrorIs(t, res.Err, speex.StatusOverflow)

	assert.Equal(t, []int16{7, 8, 9}, wait(t, ok2))

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.ChunksCompleted)
	assert.Equal(t, int64(1), stats.ChunksFailed)
}

// A failed chunk is dropped but input carried over from earlier chunks is not.
func TestProcess_ErrorKeepsCarryOver(t *testing.T) {
	var seen [][]int16
	fake := &fakeConverter{
		channels: 1, inRate: 8000, outRate: 8000,
		process: func(call int, in, out []int16) (int, int, error) {
			seen = append(seen, append([]int16(nil), in...))
			switch call {
			case 0:
				n := copy(out, in[:2])
				return n, n, nil
			case 1:
				return 0, 0, speex.StatusOverflow
			}
			n := copy(out, in)
			return n, n, nil
		},
	}
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000}, withConverter(fake))

	first := mustProcess(t, r, []int16{1, 2, 3})
	bad := mustProcess(t, r, []int16{4, 5})
	last := mustProcess(t, r, []int16{6})

	assert.Equal(t, []int16{1, 2}, wait(t, first))
	assert.ErrorIs(t, bad.Result().Err, ErrProcessing)
	assert.Equal(t, []int16{3, 6}, wait(t, last))

	require.Len(t, seen, 3)
	assert.Equal(t, []int16{3, 4, 5}, seen[1])
	assert.Equal(t, []int16{3, 6}, seen[2])
}

func TestProcess_PanicBecomesProcessingError(t *testing.T) {
	fake := &fakeConverter{
		channels: 1, inRate: 8000, outRate: 8000,
		process: func(call int, in, out []int16) (int, int, error) {
			if call == 0 {
				panic("corrupt state")
			}
			n := copy(out, in)
			return n, n, nil
		},
	}
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000}, withConverter(fake))

	res := mustProcess(t, r, []int16{1}).Result()
	require.ErrorIs(t, res.Err, ErrProcessing)
	assert.Contains(t, res.Err.Error(), "corrupt state")

	assert.Equal(t, []int16{2}, wait(t, mustProcess(t, r, []int16{2})))
}

func TestProcess_AllocationLimit(t *testing.T) {
	t.Run("rejected synchronously", func(t *testing.T) {
		r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 16000}, WithMaxChunkSamples(100))

		f, err := r.Process(make([]int16, 51))
		assert.Nil(t, f)
		assert.ErrorIs(t, err, ErrAllocation)
	})

	t.Run("carry-over pushes past the limit", func(t *testing.T) {
		fake := &fakeConverter{
			channels: 1, inRate: 8000, outRate: 8000,
			process: func(int, []int16, []int16) (int, int, error) { return 0, 0, nil },
		}
		r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000},
			withConverter(fake), WithMaxChunkSamples(100))

		assert.Empty(t, wait(t, mustProcess(t, r, make([]int16, 60))))

		res := mustProcess(t, r, make([]int16, 60)).Result()
		assert.ErrorIs(t, res.Err, ErrAllocation)
		assert.Nil(t, res.Samples)
	})
}

func TestFlush_EmitsFilterTail(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 1, InRate: 16000, OutRate: 16000})
	inLat, _ := r.Latency()

	wait(t, mustProcess(t, r, testutil.Sine(1000, 1, 440, 16000, 0.5)))

	f, err := r.Flush()
	require.NoError(t, err)
	tail := wait(t, f)
	assert.Len(t, tail, inLat)
	assert.Positive(t, testutil.Peak(tail))
}

func TestReset_MatchesFreshResampler(t *testing.T) {
	cfg := Config{Channels: 2, InRate: 44100, OutRate: 48000}
	chunk := testutil.Sine(1000, 2, 1000, 44100, 0.5)

	r := newTestResampler(t, cfg)
	wait(t, mustProcess(t, r, chunk))
	f, err := r.Reset()
	require.NoError(t, err)
	assert.Empty(t, wait(t, f))

	fresh := newTestResampler(t, cfg)
	assert.Equal(t, wait(t, mustProcess(t, fresh, chunk)), wait(t, mustProcess(t, r, chunk)))
}

func TestClose_WaitsForQueuedChunks(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeConverter{channels: 1, inRate: 8000, outRate: 8000, gate: gate}
	r, err := New(&Config{Channels: 1, InRate: 8000, OutRate: 8000},
		WithPool(newTestPool(t)), withConverter(fake))
	require.NoError(t, err)

	futures := []*Future{
		mustProcess(t, r, []int16{1}),
		mustProcess(t, r, []int16{2}),
		mustProcess(t, r, []int16{3}),
	}

	closed := make(chan error, 1)
	go func() { closed <- r.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while chunks were queued")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = r.Process([]int16{4})
	assert.ErrorIs(t, err, ErrClosed)

	close(gate)
	require.NoError(t, <-closed)

	for i, f := range futures {
		assert.Equal(t, []int16{int16(i + 1)}, wait(t, f))
	}
	fake.mu.Lock()
	assert.True(t, fake.destroyed)
	assert.Equal(t, 3, fake.callsAtDestroy)
	fake.mu.Unlock()

	assert.ErrorIs(t, r.Close(), ErrClosed)
	_, err = r.Flush()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStats(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 1, InRate: 16000, OutRate: 16000})

	wait(t, mustProcess(t, r, make([]int16, 100)))
	wait(t, mustProcess(t, r, make([]int16, 100)))

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.ChunksCompleted)
	assert.Zero(t, stats.ChunksFailed)
	assert.Equal(t, int64(200), stats.SamplesIn)
	assert.Equal(t, int64(200), stats.SamplesOut)
	assert.Zero(t, stats.Pending)
}

func TestStats_FlushPaddingNotCountedAsInput(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 2, InRate: 16000, OutRate: 16000})

	head := wait(t, mustProcess(t, r, make([]int16, 100)))
	f, err := r.Flush()
	require.NoError(t, err)
	tail := wait(t, f)

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.ChunksCompleted)
	assert.Equal(t, int64(100), stats.SamplesIn)
	assert.Equal(t, int64(len(head)+len(tail)), stats.SamplesOut)
}

// A callback that closes its own resampler must not wait on the job that
// delivered its result.
func TestThen_CallbackCanClose(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeConverter{channels: 1, inRate: 8000, outRate: 8000, gate: gate}
	r := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000}, withConverter(fake))

	f := mustProcess(t, r, []int16{1, 2})
	closed := make(chan error, 1)
	f.Then(func(res Result) {
		assert.Equal(t, []int16{1, 2}, res.Samples)
		closed <- r.Close()
	})
	close(gate)

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close called from a callback did not return")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.destroyed)
}

func mustProcess(t *testing.T, r *Resampler, in []int16) *Future {
	t.Helper()
	f, err := r.Process(in)
	require.NoError(t, err)
	return f
}

func BenchmarkProcess_Stereo(b *testing.B) {
	r, err := New(&Config{Channels: 2, InRate: 44100, OutRate: 48000})
	require.NoError(b, err)
	defer r.Close()

	chunk := testutil.Sine(441, 2, 1000, 44100, 0.5)
	b.ReportAllocs()
	for b.Loop() {
		f, err := r.Process(chunk)
		if err != nil {
			b.Fatal(err)
		}
		<-f.Done()
	}
}

func TestInfo(t *testing.T) {
	r := newTestResampler(t, Config{Channels: 2, InRate: 44100, OutRate: 48000})
	info := r.Info()
	assert.Equal(t, "windowed-sinc polyphase", info.Algorithm)
	assert.Equal(t, 128, info.FilterLength)
	assert.Equal(t, 160, info.Phases)
	assert.Equal(t, 64, info.InputLatency)

	odd := newTestResampler(t, Config{Channels: 1, InRate: 44100, OutRate: 44101})
	assert.Equal(t, "windowed-sinc interpolated", odd.Info().Algorithm)

	fake := newTestResampler(t, Config{Channels: 1, InRate: 8000, OutRate: 8000},
		withConverter(&fakeConverter{channels: 1, inRate: 8000, outRate: 8000}))
	assert.Equal(t, "unknown", fake.Info().Algorithm)
	assert.Equal(t, 4, fake.Info().InputLatency)
}
