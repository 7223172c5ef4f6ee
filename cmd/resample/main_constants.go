package main

// Default command-line flag values
const (
	defaultInputRate  = 44100 // CD quality sample rate
	defaultOutputRate = 48000 // DAT/DVD sample rate
	defaultChannels   = 2     // Stereo
)

// Test signal parameters
const (
	testSignalFrequency = 1000.0 // 1 kHz test tone
	testSignalFrames    = 4410   // Default test signal length
	testSignalAmplitude = 16384  // Half of int16 full scale
)

// Demo sample rates for testing
const (
	sampleRateVoIP  = 16000 // Wideband speech
	sampleRateCD    = 44100 // CD quality
	sampleRateDAT   = 48000 // DAT/DVD
	sampleRate2xCD  = 88200 // 2x CD
	sampleRateHiRes = 96000 // Hi-res audio
)

// Demo channel configurations
const (
	monoChannels   = 1
	stereoChannels = 2
	surround5_1    = 6
	surround7_1    = 8
)

// Memory conversion
const (
	bytesPerKilobyte = 1024
	bytesPerTap      = 8 // float64 coefficient
)
