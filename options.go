package resampler

import (
	"log/slog"
	"sync"

	"github.com/geekuillaume/go-speex-resampler/internal/worker"
)

// Pool is a set of goroutines shared by resamplers to run their jobs.
type Pool = worker.Pool

// NewPool starts a pool with the given number of goroutines. Zero or less
// uses GOMAXPROCS. The caller must Close it once every resampler using it
// has been closed.
func NewPool(workers int) *Pool {
	return worker.NewPool(workers, nil)
}

// sharedPool is used by resamplers created without WithPool. It lives for
// the rest of the process.
var sharedPool = sync.OnceValue(func() *worker.Pool {
	return worker.NewPool(0, nil)
})

// Option configures a Resampler or Registry.
type Option func(*options)

type options struct {
	pool            *worker.Pool
	logger          *slog.Logger
	maxChunkSamples int
	newConverter    func(channels, inRate, outRate, quality int) (converter, error)
}

func buildOptions(opts []Option) options {
	o := options{
		maxChunkSamples: defaultMaxChunkSamples,
		newConverter:    newSpeexConverter,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = sharedPool()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithPool runs jobs on p instead of the process-wide pool.
func WithPool(p *Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxChunkSamples limits the output buffer of a single chunk. Chunks
// that would need more fail with ErrAllocation.
func WithMaxChunkSamples(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxChunkSamples = n
		}
	}
}
