package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// DefaultTapSize is the analysis window, in samples.
const DefaultTapSize = 2048

// Tap copies a mono mix of everything passing through it into a ring buffer for
// visualisation. It never alters the signal.
type Tap struct {
	s    beep.Streamer
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

func NewTap(s beep.Streamer, size int) *Tap {
	if size <= 0 {
		size = DefaultTapSize
	}
	return &Tap{s: s, buf: make([]float64, size), size: size}
}

func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.mu.Lock()
	for i := range n {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

func (t *Tap) Err() error {
	return t.s.Err()
}

// Samples returns the last n samples, oldest first. n is capped at the window size.
func (t *Tap) Samples(n int) []float64 {
	n = min(max(n, 0), t.size)
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := range n {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}
