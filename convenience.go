package resampler

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Common sample rates for convenience functions.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD sample rate.
	RateDAT = 48000

	// RateHiRes88 is the high-resolution 2x CD sample rate.
	RateHiRes88 = 88200

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateTelephony is the telephony (PSTN narrowband) sample rate.
	RateTelephony = 8000

	// RateVoIP is the VoIP wideband sample rate.
	RateVoIP = 16000

	// RateSpeech is the speech recognition common sample rate.
	RateSpeech = 22050
)

// NewCDtoDAT creates a resampler for CD (44.1kHz) to DAT (48kHz) conversion.
func NewCDtoDAT(channels int, opts ...Option) (*Resampler, error) {
	return New(&Config{Channels: channels, InRate: RateCD, OutRate: RateDAT}, opts...)
}

// NewDATtoCD creates a resampler for DAT (48kHz) to CD (44.1kHz) conversion.
func NewDATtoCD(channels int, opts ...Option) (*Resampler, error) {
	return New(&Config{Channels: channels, InRate: RateDAT, OutRate: RateCD}, opts...)
}

// NewVoIP creates a mono resampler from inputRate to the 16kHz wideband rate
// used by speech codecs.
func NewVoIP(inputRate int, opts ...Option) (*Resampler, error) {
	return New(&Config{Channels: 1, InRate: inputRate, OutRate: RateVoIP}, opts...)
}

// Resample converts a complete interleaved signal in one call. It processes
// the input, flushes the filter tail and closes the resampler. Quality zero
// selects DefaultQuality.
func Resample(ctx context.Context, input []int16, channels, inRate, outRate, quality int, opts ...Option) ([]int16, error) {
	r, err := New(&Config{Channels: channels, InRate: inRate, OutRate: outRate, Quality: quality}, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	body, err := r.Process(input)
	if err != nil {
		return nil, err
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, err
	}

	output, err := body.Wait(ctx)
	if err != nil {
		return nil, err
	}
	flushed, err := tail.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return append(output, flushed...), nil
}

// ResampleStereo is a convenience function for one-shot stereo resampling of
// planar channels.
func ResampleStereo(ctx context.Context, left, right []int16, inRate, outRate, quality int) (leftOut, rightOut []int16, err error) {
	out, err := Resample(ctx, InterleaveToStereo(left, right), stereoChannels, inRate, outRate, quality)
	if err != nil {
		return nil, nil, err
	}
	leftOut, rightOut = DeinterleaveFromStereo(out)
	return leftOut, rightOut, nil
}

// InterleaveToStereo converts two mono channels to interleaved stereo.
// Output format: [L0, R0, L1, R1, L2, R2, ...]
func InterleaveToStereo(left, right []int16) []int16 {
	minLen := min(len(left), len(right))
	result := make([]int16, minLen*stereoChannels)
	for i := range minLen {
		result[i*stereoChannels] = left[i]
		result[i*stereoChannels+1] = right[i]
	}
	return result
}

// DeinterleaveFromStereo converts interleaved stereo to two mono channels.
// Input format: [L0, R0, L1, R1, L2, R2, ...]
func DeinterleaveFromStereo(interleaved []int16) (left, right []int16) {
	numSamples := len(interleaved) / stereoChannels
	left = make([]int16, numSamples)
	right = make([]int16, numSamples)
	for i := range numSamples {
		left[i] = interleaved[i*stereoChannels]
		right[i] = interleaved[i*stereoChannels+1]
	}
	return left, right
}

// BytesToSamples decodes little-endian 16-bit PCM. An odd trailing byte is
// an error.
func BytesToSamples(b []byte) ([]int16, error) {
	if len(b)%bytesPerSample != 0 {
		return nil, &ValidationError{
			Arg:    "input",
			Reason: fmt.Sprintf("has odd length %d for 16-bit samples", len(b)),
		}
	}
	out := make([]int16, len(b)/bytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*bytesPerSample:]))
	}
	return out, nil
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, 0, len(samples)*bytesPerSample)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}
