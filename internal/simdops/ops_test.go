package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	for _, n := range []int{0, 1, 3, 8, 17, 64, 129} {
		a := make([]float64, n)
		b := make([]float64, n)
		var want float64
		for i := range n {
			a[i] = float64(i) * 0.25
			b[i] = float64(n-i) * 0.5
			want += a[i] * b[i]
		}
		assert.InDelta(t, want, Dot(a, b), 1e-9, "n=%d", n)
	}
}

func TestDot_UnequalLengths(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{1, 1}
	assert.InDelta(t, 3.0, Dot(a, b), 1e-12)
}

func TestSum(t *testing.T) {
	assert.InDelta(t, 10.0, Sum([]float64{1, 2, 3, 4}), 1e-12)
}

func TestLoadStrided(t *testing.T) {
	src := []int16{1, -1, 2, -2, 3, -3, 4}

	dst := make([]float64, 8)
	n := LoadStrided(dst, src[1:], 2)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float64{-1, -2, -3}, dst[:n])

	short := make([]float64, 2)
	assert.Equal(t, 2, LoadStrided(short, src, 2))
	assert.Equal(t, []float64{1, 2}, short)
}

// BenchmarkDot measures the kernel at a typical quality-7 filter length.
func BenchmarkDot(b *testing.B) {
	a := make([]float64, 128)
	c := make([]float64, 128)
	for i := range a {
		a[i] = float64(i) * 0.01
		c[i] = float64(i) * 0.02
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = Dot(a, c)
	}
}
