package resampler

// Channel constants
const (
	stereoChannels = 2   // Stereo channel count (used by interleave functions)
	maxChannels    = 256 // Maximum supported channel count
)

// Buffer constants
const (
	// defaultMaxChunkSamples caps a single job's output buffer.
	defaultMaxChunkSamples = 1 << 26

	// carryFrames is the initial per-channel capacity of the carry-over buffer.
	carryFrames = 1024

	bytesPerSample = 2 // int16 PCM
)
