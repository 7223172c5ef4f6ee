// Package resampler converts streams of interleaved 16-bit PCM between
// sample rates without blocking the caller.
//
// The converter is a pure-Go windowed-sinc resampler modelled on the
// speexdsp resampler: the rate ratio is reduced to a fraction, each output
// sample is a dot product of the input history with one of a bank of
// Kaiser-windowed sinc kernels, and quality levels 1 to 10 trade kernel
// length for CPU.
//
// # Quick Start
//
// For simple one-shot resampling:
//
//	out, err := resampler.Resample(ctx, pcm, 2, 44100, 48000, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For streaming, create one Resampler per stream and submit chunks as they
// arrive. Process returns at once; the Future delivers the converted chunk:
//
//	r, err := resampler.New(&resampler.Config{
//	    Channels: 2,
//	    InRate:   44100,
//	    OutRate:  48000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	for chunk := range chunks {
//	    f, err := r.Process(chunk)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, err := f.Wait(ctx)
//	    ...
//	}
//
//	// Emit the samples still held by the filter.
//	tail, _ := r.Flush()
//
// # Ordering and Concurrency
//
// The filter memory of a Resampler carries over from one chunk to the next,
// so its chunks are converted strictly in submission order and never
// concurrently. Callers may submit several chunks without waiting; the
// results are the same as if each had been awaited before submitting the
// next. Different Resamplers share a worker pool and run in parallel.
//
// Input the converter cannot use yet, such as a trailing partial frame, is
// kept and placed ahead of the next chunk.
//
// # Handles
//
// [CreateResampler], [ProcessChunk] and [DestroyResampler] expose the same
// functionality behind opaque [Handle] values, for hosts that should not
// hold Go pointers. A destroyed handle is reported as [ErrUnknownHandle].
//
// # Errors
//
// Argument errors wrap [ErrValidation] and are returned synchronously, as is
// a configuration the converter refuses ([ErrInit]). A failure while
// converting a chunk is delivered through the chunk's Future and wraps
// [ErrProcessing] or [ErrAllocation]; the Resampler remains usable.
package resampler
