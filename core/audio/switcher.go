package audio

import (
	"io"
	"sync"

	"github.com/gopxl/beep/v2"
)

// switcher is the permanent head of the output pipeline. The speaker plays it for the
// whole process lifetime while the renderer swaps sources in and out. It emits silence
// while paused or empty, and never reports itself drained.
type switcher struct {
	mu     sync.Mutex
	src    beep.Streamer
	onEnd  func(err error)
	paused bool
}

func newSwitcher() *switcher {
	return &switcher{paused: true}
}

// set installs src and the callback fired once when it drains. A nil src detaches.
func (s *switcher) set(src beep.Streamer, onEnd func(error)) {
	s.mu.Lock()
	s.setLocked(src, onEnd)
	s.mu.Unlock()
}

func (s *switcher) setLocked(src beep.Streamer, onEnd func(error)) {
	s.src = src
	s.onEnd = onEnd
}

func (s *switcher) setPaused(p bool) {
	s.mu.Lock()
	s.paused = p
	s.mu.Unlock()
}

// detach drops the source and pauses. c is closed before streaming resumes, so
// nothing reading under do sees it half closed.
func (s *switcher) detach(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(nil, nil)
	s.paused = true
	if c != nil {
		_ = c.Close()
	}
}

// do runs fn with streaming blocked, for touching the decoder the source reads from.
func (s *switcher) do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

func (s *switcher) attachedLocked() bool { return s.src != nil }

func (s *switcher) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	filled := 0
	var done func(error)
	var srcErr error
	for !s.paused && s.src != nil && filled < len(samples) {
		n, ok := s.src.Stream(samples[filled:])
		filled += n
		if !ok {
			srcErr = s.src.Err()
			done = s.onEnd
			s.src, s.onEnd = nil, nil
			break
		}
		if n == 0 {
			break
		}
	}
	s.mu.Unlock()

	clear(samples[filled:])
	if done != nil {
		// off the audio thread; the callback may take the renderer lock
		go done(srcErr)
	}
	return len(samples), true
}

func (s *switcher) Err() error { return nil }
