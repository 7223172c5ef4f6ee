package speex

import "fmt"

// Status is a converter result code. The zero value means success; any
// other value is returned as an error.
type Status int

// Status codes, numbered like the speexdsp resampler's.
const (
	StatusSuccess Status = iota
	StatusAllocFailed
	StatusBadState
	StatusInvalidArg
	StatusPtrOverlap
	StatusOverflow
)

var statusMessages = [...]string{
	StatusSuccess:     "success",
	StatusAllocFailed: "memory allocation failed",
	StatusBadState:    "bad resampler state",
	StatusInvalidArg:  "invalid argument",
	StatusPtrOverlap:  "input and output buffers overlap",
	StatusOverflow:    "sample count overflow",
}

// Error implements the error interface.
func (s Status) Error() string {
	if s < 0 || int(s) >= len(statusMessages) {
		return fmt.Sprintf("unknown converter status %d", int(s))
	}
	return statusMessages[s]
}
