package resampler

import (
	"context"
	"sync"
)

// Result is the outcome of one job. Exactly one of Samples and Err is
// meaningful: a failed job delivers no samples.
type Result struct {
	// Samples holds interleaved output at the output rate. The caller owns it.
	Samples []int16

	// Consumed is the number of input frames the converter took in.
	Consumed int

	Err error
}

// Future is the single-resolution result of a queued job.
type Future struct {
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	res       Result
	callbacks []func(Result)

	// dispatch, when set, runs the callbacks instead of the resolving goroutine.
	dispatch func(func())
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve stores res and wakes every waiter. Only the first call has effect.
func (f *Future) resolve(res Result) {
	f.once.Do(func() {
		f.mu.Lock()
		f.res = res
		callbacks := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		if len(callbacks) == 0 {
			return
		}
		run := func() {
			for _, fn := range callbacks {
				fn(res)
			}
		}
		if f.dispatch != nil {
			f.dispatch(run)
			return
		}
		run()
	})
}

// Done returns a channel that is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// does not cancel the job: it still runs and later chunks still follow it.
func (f *Future) Wait(ctx context.Context) ([]int16, error) {
	select {
	case <-f.done:
		res := f.Result()
		return res.Samples, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the job's result. It blocks until the job finishes.
func (f *Future) Result() Result {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res
}

// Then registers fn to receive the result. If the job has already finished
// fn runs immediately on the calling goroutine. Otherwise it runs on a pool
// worker after the job, outside the resampler's job queue, so fn may call
// Close or DestroyResampler. Callbacks of one resampler run in submission
// order.
func (f *Future) Then(fn func(Result)) {
	f.mu.Lock()
	select {
	case <-f.done:
		res := f.res
		f.mu.Unlock()
		fn(res)
	default:
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
	}
}
