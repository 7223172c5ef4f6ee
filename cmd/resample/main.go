package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	resampling "github.com/geekuillaume/go-speex-resampler"
)

func main() {
	// Command-line flags
	var (
		inputRate  = flag.Int("input-rate", defaultInputRate, "Input sample rate in Hz")
		outputRate = flag.Int("output-rate", defaultOutputRate, "Output sample rate in Hz")
		channels   = flag.Int("channels", defaultChannels, "Number of audio channels")
		quality    = flag.Int("quality", resampling.DefaultQuality, "Quality from 1 to 10")
		demo       = flag.Bool("demo", false, "Run a demonstration")
	)
	flag.Parse()

	if *demo {
		runDemo()
		return
	}

	// Create resampler
	resampler, err := resampling.New(&resampling.Config{
		Channels: *channels,
		InRate:   *inputRate,
		OutRate:  *outputRate,
		Quality:  *quality,
	})
	if err != nil {
		log.Fatalf("Failed to create resampler: %v", err)
	}
	defer resampler.Close()

	// Get resampler info
	info := resampler.Info()
	fmt.Printf("Resampler created:\n")
	fmt.Printf("  Algorithm: %s\n", info.Algorithm)
	fmt.Printf("  Ratio: %.6f (%d Hz -> %d Hz)\n", float64(*outputRate)/float64(*inputRate), *inputRate, *outputRate)
	fmt.Printf("  Filter length: %d taps\n", info.FilterLength)
	fmt.Printf("  Phases: %d\n", info.Phases)
	fmt.Printf("  Latency: %d input / %d output frames\n", info.InputLatency, info.OutputLatency)
	fmt.Printf("  SIMD: %s\n", info.SIMDType)

	// Example: process a test signal
	fmt.Println("\nProcessing test signal...")
	testSignal := generateTestSignal(testSignalFrames, *channels, *inputRate)
	f, err := resampler.Process(testSignal)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}
	output, err := f.Wait(context.Background())
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	fmt.Printf("Input frames: %d\n", testSignalFrames)
	fmt.Printf("Output frames: %d\n", len(output) / *channels)
	fmt.Printf("Capacity bound: %d samples\n", *outputRate*len(testSignal) / *inputRate)
}

// generateTestSignal returns an interleaved 1kHz sine wave.
func generateTestSignal(frames, channels, sampleRate int) []int16 {
	signal := make([]int16, frames*channels)
	omega := 2 * math.Pi * testSignalFrequency / float64(sampleRate)

	for i := range frames {
		v := int16(math.Round(testSignalAmplitude * math.Sin(omega*float64(i))))
		for ch := range channels {
			signal[i*channels+ch] = v
		}
	}

	return signal
}

func runDemo() {
	fmt.Println("=== Go Speex Resampler Demo ===")

	// Demo 1: Different quality levels
	fmt.Println("1. Comparing Quality Levels")
	fmt.Println("----------------------------")

	testRatios := []struct {
		from, to int
		name     string
	}{
		{sampleRateCD, sampleRateDAT, "CD to DAT"},
		{sampleRateDAT, sampleRateCD, "DAT to CD"},
		{sampleRateCD, sampleRate2xCD, "CD to 2x"},
		{sampleRateHiRes, sampleRateVoIP, "Hi-res to VoIP"},
	}

	qualities := []int{1, 4, resampling.DefaultQuality, 10}

	for _, ratio := range testRatios {
		fmt.Printf("\n%s (%d Hz -> %d Hz, ratio: %.4f):\n",
			ratio.name, ratio.from, ratio.to, float64(ratio.to)/float64(ratio.from))

		for _, q := range qualities {
			resampler, err := resampling.New(&resampling.Config{
				Channels: stereoChannels,
				InRate:   ratio.from,
				OutRate:  ratio.to,
				Quality:  q,
			})
			if err != nil {
				fmt.Printf("  Q%d: Error - %v\n", q, err)
				continue
			}

			info := resampler.Info()
			fmt.Printf("  Q%-2d: %4d taps x %4d phases (%s), %d frames latency, %.1f KB table\n",
				q, info.FilterLength, info.Phases, info.Algorithm, info.OutputLatency,
				float64(info.FilterLength*info.Phases*bytesPerTap)/bytesPerKilobyte)
			_ = resampler.Close()
		}
	}

	// Demo 2: Performance characteristics
	fmt.Println("\n2. Performance Characteristics")
	fmt.Println("------------------------------")

	fmt.Println("Processing 1 second of stereo audio (44.1kHz -> 48kHz):")

	testSignal := generateTestSignal(sampleRateCD, stereoChannels, sampleRateCD)

	for _, q := range qualities {
		start := time.Now()
		output, err := resampling.Resample(context.Background(), testSignal, stereoChannels, sampleRateCD, sampleRateDAT, q)
		if err != nil {
			continue
		}

		fmt.Printf("  Q%-2d: %d -> %d frames in %v\n",
			q, sampleRateCD, len(output)/stereoChannels, time.Since(start).Round(time.Microsecond))
	}

	// Demo 3: Independent streams in parallel
	fmt.Println("\n3. Parallel Streams")
	fmt.Println("-------------------")

	channelCounts := []int{monoChannels, stereoChannels, surround5_1, surround7_1}

	var wg sync.WaitGroup
	results := make([]string, len(channelCounts))
	start := time.Now()
	for i, ch := range channelCounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := resampling.Resample(context.Background(),
				generateTestSignal(sampleRateDAT, ch, sampleRateDAT), ch, sampleRateDAT, sampleRateCD, 0)
			if err != nil {
				results[i] = fmt.Sprintf("  %d channels: Error - %v", ch, err)
				return
			}
			results[i] = fmt.Sprintf("  %d channels: %d frames", ch, len(out)/ch)
		}()
	}
	wg.Wait()
	for _, line := range results {
		fmt.Println(line)
	}
	fmt.Printf("  All streams done in %v\n", time.Since(start).Round(time.Microsecond))

	fmt.Println("\n=== Demo Complete ===")
}
