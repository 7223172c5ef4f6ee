// Package pipeline holds the staging buffer that sits between chunk
// submission and the converter.
package pipeline

// bufferGrowthFactor is the multiplier applied when the buffer must grow.
const bufferGrowthFactor = 2

// SampleBuffer is a linear FIFO of interleaved int16 samples.
//
// Unlike a ring buffer the unread samples are always contiguous, so Peek can
// hand them to a converter without copying. Space freed by Discard is
// reclaimed by shifting the unread tail to the front on the next Write.
// A SampleBuffer is not safe for concurrent use.
type SampleBuffer struct {
	data    []int16
	readPos int
}

// NewSampleBuffer creates a buffer with room for capacity samples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	return &SampleBuffer{data: make([]int16, 0, max(capacity, 1))}
}

// Write appends samples, growing the buffer if needed.
func (b *SampleBuffer) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}
	if len(b.data)+len(samples) > cap(b.data) {
		b.compact()
	}
	if need := len(b.data) + len(samples); need > cap(b.data) {
		b.grow(need)
	}
	b.data = append(b.data, samples...)
}

// Peek returns the unread samples. The slice is valid until the next Write.
func (b *SampleBuffer) Peek() []int16 {
	return b.data[b.readPos:]
}

// Discard drops the first n unread samples.
func (b *SampleBuffer) Discard(n int) {
	b.readPos += min(max(n, 0), b.Available())
	if b.readPos == len(b.data) {
		b.data = b.data[:0]
		b.readPos = 0
	}
}

// Truncate keeps only the first n unread samples.
func (b *SampleBuffer) Truncate(n int) {
	if n < b.Available() {
		b.data = b.data[:b.readPos+max(n, 0)]
	}
}

// Available returns the number of unread samples.
func (b *SampleBuffer) Available() int {
	return len(b.data) - b.readPos
}

// Capacity returns the current capacity.
func (b *SampleBuffer) Capacity() int {
	return cap(b.data)
}

// Clear drops every unread sample.
func (b *SampleBuffer) Clear() {
	b.data = b.data[:0]
	b.readPos = 0
}

// compact moves the unread samples to the front.
func (b *SampleBuffer) compact() {
	if b.readPos == 0 {
		return
	}
	n := copy(b.data, b.data[b.readPos:])
	b.data = b.data[:n]
	b.readPos = 0
}

// grow reallocates to hold at least minCapacity samples.
func (b *SampleBuffer) grow(minCapacity int) {
	newCap := max(cap(b.data)*bufferGrowthFactor, minCapacity)
	newData := make([]int16, len(b.data), newCap)
	copy(newData, b.data)
	b.data = newData
}
