// Command resample-wav resamples 16-bit PCM WAV files to a target sample rate.
//
// Usage:
//
//	resample-wav -rate 48 input.wav output.wav
//	resample-wav -rate 16 -quality 10 input.wav output.wav
//	resample-wav -rate 44.1 -analyze input.wav output.wav   # Print level and tone report
//
// The file is read in chunks that are converted asynchronously, so decoding,
// conversion and encoding overlap.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	resampler "github.com/geekuillaume/go-speex-resampler"
)

const (
	// chunkFrames is the number of frames read per chunk.
	chunkFrames = 16384

	// maxInFlight bounds the chunks queued for conversion but not yet written.
	maxInFlight = 8

	// Conversion constants
	kHzToHz          = 1000
	progressInterval = 10 // Print progress every N%

	// CLI defaults
	defaultRateKHz  = 48.0
	minRequiredArgs = 2
	percentScale    = 100

	// analyzeSeconds limits how much audio the -analyze report looks at.
	analyzeSeconds = 2
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Parse command line flags
	rateKHz := flag.Float64("rate", defaultRateKHz, "Target sample rate in kHz (e.g., 16, 32, 44.1, 48, 96)")
	quality := flag.Int("quality", resampler.DefaultQuality, "Quality from 1 (fastest) to 10 (best)")
	analyze := flag.Bool("analyze", false, "Print level and dominant frequency of input and output")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file (for PGO)")
	flag.Parse()

	// Validate arguments before setting up profiling
	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -rate 48 input.wav output.wav      # Resample to 48kHz\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -rate 16 speech.wav speech_16k.wav # Downsample for speech\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -rate 96 music.wav music_hires.wav # Upsample to hi-res\n", os.Args[0])
		return fmt.Errorf("insufficient arguments")
	}

	// Start CPU profiling if requested (for PGO)
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	opts := options{
		inputPath:  args[0],
		outputPath: args[1],
		targetRate: int(*rateKHz * kHzToHz),
		quality:    *quality,
		analyze:    *analyze,
		verbose:    *verbose,
	}

	if opts.verbose {
		log.Printf("Input: %s", opts.inputPath)
		log.Printf("Output: %s", opts.outputPath)
		log.Printf("Target rate: %d Hz", opts.targetRate)
		log.Printf("Quality: %d", opts.quality)
		opts.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	// Process the file
	start := time.Now()
	stats, err := resampleWAV(context.Background(), opts)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	// Print summary
	fmt.Printf("Resampled %s -> %s\n", filepath.Base(opts.inputPath), filepath.Base(opts.outputPath))
	fmt.Printf("  %d Hz -> %d Hz (%d channels, 16-bit, quality %d)\n",
		stats.inputRate, stats.outputRate, stats.channels, opts.quality)
	fmt.Printf("  %d frames -> %d frames\n", stats.inputFrames, stats.outputFrames)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(),
		float64(stats.inputFrames)/float64(stats.inputRate)/elapsed.Seconds())

	if opts.analyze {
		printReport("Input", stats.inputReport)
		printReport("Output", stats.outputReport)
	}

	return nil
}
