package resampler

import (
	"errors"
	"fmt"
	"sync"
)

// Handle identifies a resampler owned by a Registry. The zero Handle is
// never issued.
type Handle uint64

// Registry hands out opaque handles for resamplers so callers can process
// chunks without holding the resampler itself. Handles are never reused,
// so a destroyed handle is reported as ErrUnknownHandle.
type Registry struct {
	opts []Option

	mu   sync.RWMutex
	next Handle
	live map[Handle]*Resampler
}

// NewRegistry creates a registry whose resamplers are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts: opts,
		live: make(map[Handle]*Resampler),
	}
}

var defaultRegistry = NewRegistry()

// CreateResampler creates a resampler and returns its handle. Quality is
// optional; at most one value may be given and it must lie in
// [MinQuality, MaxQuality].
func (g *Registry) CreateResampler(channels, inRate, outRate int, quality ...int) (Handle, error) {
	q := DefaultQuality
	switch len(quality) {
	case 0:
	case 1:
		q = quality[0]
		if err := validateQuality(q); err != nil {
			return 0, err
		}
	default:
		return 0, &ValidationError{
			Arg:    "quality",
			Reason: fmt.Sprintf("takes at most one value, got %d", len(quality)),
		}
	}

	r, err := New(&Config{Channels: channels, InRate: inRate, OutRate: outRate, Quality: q}, g.opts...)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	g.next++
	h := g.next
	g.live[h] = r
	g.mu.Unlock()
	return h, nil
}

// ProcessChunk queues input on the resampler behind h. An optional channel
// count may be passed; it must match the count the resampler was created
// with.
func (g *Registry) ProcessChunk(h Handle, input []int16, channels ...int) (*Future, error) {
	r, err := g.Lookup(h)
	if err != nil {
		return nil, err
	}

	switch {
	case len(channels) > 1:
		return nil, &ValidationError{
			Arg:    "channels",
			Reason: fmt.Sprintf("takes at most one value, got %d", len(channels)),
		}
	case len(channels) == 1 && channels[0] != r.Channels():
		return nil, &ValidationError{
			Arg:    "channels",
			Reason: fmt.Sprintf("is %d but the resampler was created with %d", channels[0], r.Channels()),
		}
	}

	return r.Process(input)
}

// DestroyResampler removes h and closes its resampler, waiting for its
// queued chunks to finish.
func (g *Registry) DestroyResampler(h Handle) error {
	g.mu.Lock()
	r, ok := g.live[h]
	delete(g.live, h)
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return r.Close()
}

// Lookup returns the resampler behind h.
func (g *Registry) Lookup(h Handle) (*Resampler, error) {
	g.mu.RLock()
	r, ok := g.live[h]
	g.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return r, nil
}

// Len returns the number of live handles.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.live)
}

// Close destroys every live resampler.
func (g *Registry) Close() error {
	g.mu.Lock()
	live := g.live
	g.live = make(map[Handle]*Resampler)
	g.mu.Unlock()

	var errs []error
	for _, r := range live {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// CreateResampler creates a resampler in the default registry.
func CreateResampler(channels, inRate, outRate int, quality ...int) (Handle, error) {
	return defaultRegistry.CreateResampler(channels, inRate, outRate, quality...)
}

// ProcessChunk queues input on a resampler of the default registry.
func ProcessChunk(h Handle, input []int16, channels ...int) (*Future, error) {
	return defaultRegistry.ProcessChunk(h, input, channels...)
}

// DestroyResampler destroys a resampler of the default registry.
func DestroyResampler(h Handle) error {
	return defaultRegistry.DestroyResampler(h)
}
