package player

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"Bt1Stream/logger"

	"github.com/samber/lo"
)

// restartWindow: previous() within this many seconds of the start moves to the prior
// track, later it restarts the current one.
const restartWindow = 3.0

const defaultVolume = 0.9

// State is a copy of the session at one instant.
type State struct {
	Status       Status
	Queue        []Track
	CurrentIndex int // -1 when nothing is current
	PositionSec  float64
	DurationSec  float64 // 0 until the source reports it
	Volume       float64
	Repeat       RepeatMode
	Shuffle      bool
	Err          error // last *LoadError, nil unless Status == StatusError
}

// Current returns the current track, if any.
func (s State) Current() (Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return Track{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// Session is the playback state machine. It exclusively owns one Media, constructed
// lazily on first use and reused for every track until Close.
type Session struct {
	mu sync.Mutex

	newMedia MediaFactory
	media    Media
	closed   bool

	queue         []Track
	current       int
	status        Status
	position      float64
	duration      float64
	durationKnown bool
	volume        float64
	repeat        RepeatMode
	shuffle       bool
	lastErr       error

	// seq identifies the armed load; events carrying an older value are dropped.
	seq uint64

	intn     func(n int) int
	onChange func(State)
}

type SessionOption func(*Session)

func WithVolume(v float64) SessionOption {
	return func(s *Session) { s.volume = clampVolume(v, s.volume) }
}

// WithRandom replaces the source of shuffle picks; intn(n) must return [0, n).
func WithRandom(intn func(n int) int) SessionOption {
	return func(s *Session) { s.intn = intn }
}

// WithStateListener is called after every change, outside the session lock.
func WithStateListener(fn func(State)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

func WithRepeat(r RepeatMode) SessionOption {
	return func(s *Session) { s.repeat = r }
}

func NewSession(factory MediaFactory, opts ...SessionOption) *Session {
	s := &Session{
		newMedia: factory,
		current:  -1,
		volume:   defaultVolume,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// update runs fn under the lock and notifies the listener afterwards.
func (s *Session) update(fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	err := fn()
	st := s.stateLocked()
	listener := s.onChange
	s.mu.Unlock()

	if listener != nil {
		listener(st)
	}
	return err
}

// mediaLocked returns the owned Media, building it the first time. A failed build is
// retried on the next call; a successful one is never repeated.
func (s *Session) mediaLocked() (Media, error) {
	if s.media != nil {
		return s.media, nil
	}
	m, err := s.newMedia()
	if err != nil {
		return nil, err
	}
	m.SetVolume(s.volume)
	s.media = m
	return m, nil
}

type loadOptions struct {
	queue    []Track
	hasQueue bool
	start    int
	hasStart bool
}

type LoadOption func(*loadOptions)

// WithQueue replaces the whole queue with a copy of q.
func WithQueue(q []Track) LoadOption {
	return func(o *loadOptions) {
		o.queue = q
		o.hasQueue = true
	}
}

// StartAt selects the queue slot explicitly instead of locating the track by id.
func StartAt(i int) LoadOption {
	return func(o *loadOptions) {
		o.start = i
		o.hasStart = true
	}
}

// LoadTrack makes track current and starts loading it. Selecting the track that is
// already current toggles playback instead of reloading, which does nothing while it
// is still loading. Ended and failed tracks are reloaded. Without WithQueue a track
// missing from the queue is appended to it.
func (s *Session) LoadTrack(track Track, opts ...LoadOption) error {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return s.update(func() error {
		queue := s.queue
		if o.hasQueue {
			queue = slices.Clone(o.queue)
		}

		idx := -1
		if o.hasStart {
			if o.start < 0 || o.start >= len(queue) {
				return ErrIndexOutOfRange
			}
			idx = o.start
		} else {
			_, idx, _ = lo.FindIndexOf(queue, func(t Track) bool { return t.ID == track.ID })
		}

		if idx < 0 {
			if o.hasQueue {
				return ErrTrackNotInQueue
			}
			queue = append(queue, track)
			idx = len(queue) - 1
		}

		if cur, ok := s.currentLocked(); ok && cur.ID == queue[idx].ID &&
			(s.status == StatusPlaying || s.status == StatusPaused || s.status == StatusLoading) {
			s.queue = queue
			s.current = idx
			return s.togglePlayLocked()
		}

		s.queue = queue
		return s.loadIndexLocked(idx)
	})
}

// PlayAtIndex loads the queue slot i, clamped into the queue.
func (s *Session) PlayAtIndex(i int) error {
	return s.update(func() error {
		if len(s.queue) == 0 {
			return ErrEmptyQueue
		}
		return s.loadIndexLocked(lo.Clamp(i, 0, len(s.queue)-1))
	})
}

// Enqueue appends tracks without changing what is current.
func (s *Session) Enqueue(tracks ...Track) error {
	return s.update(func() error {
		s.queue = append(s.queue, tracks...)
		return nil
	})
}

func (s *Session) currentLocked() (Track, bool) {
	if s.current < 0 || s.current >= len(s.queue) {
		return Track{}, false
	}
	return s.queue[s.current], true
}

func (s *Session) loadIndexLocked(idx int) error {
	track := s.queue[idx]
	media, err := s.mediaLocked()
	if err != nil {
		s.current = idx
		s.status = StatusError
		s.lastErr = newLoadError(track, err)
		return s.lastErr
	}

	s.seq++
	seq := s.seq
	s.current = idx
	s.status = StatusLoading
	s.position = 0
	s.duration = 0
	s.durationKnown = false
	s.lastErr = nil

	logger.Debug("加载曲目",
		logger.Int64("trackId", track.ID),
		logger.String("url", track.StreamURL),
		logger.Uint64("seq", seq))

	media.Load(track.StreamURL, func(ev Event) { s.handleEvent(seq, ev) })
	return nil
}

func (s *Session) handleEvent(seq uint64, ev Event) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		logger.Debug("丢弃过期的媒体事件",
			logger.Uint64("seq", seq),
			logger.Int("kind", int(ev.Kind)))
		return
	}
	changed := s.applyEventLocked(ev)
	st := s.stateLocked()
	listener := s.onChange
	s.mu.Unlock()

	if changed && listener != nil {
		listener(st)
	}
}

func (s *Session) applyEventLocked(ev Event) bool {
	track, _ := s.currentLocked()
	switch ev.Kind {
	case EventReady:
		if s.status != StatusLoading {
			return false
		}
		if ev.Duration > 0 && !math.IsInf(ev.Duration, 0) {
			s.duration = ev.Duration
			s.durationKnown = true
		}
		if err := s.media.Play(); err != nil {
			s.status = StatusError
			s.lastErr = newLoadError(track, err)
			return true
		}
		s.status = StatusPlaying

	case EventTimeUpdate:
		pos := math.Max(ev.Position, 0)
		if s.durationKnown {
			pos = math.Min(pos, s.duration)
		}
		s.position = pos

	case EventEnded:
		if s.status != StatusPlaying && s.status != StatusPaused {
			return false
		}
		s.endedLocked()

	case EventError:
		s.status = StatusError
		s.lastErr = newLoadError(track, ev.Err)
		logger.Warn("曲目播放失败",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(ev.Err))

	case EventInterrupted:
		if s.status != StatusPlaying {
			return false
		}
		s.status = StatusPaused
	}
	return true
}

// endedLocked: repeat-one restarts the track; repeat-none without shuffle stops after
// the last slot; everything else advances like Next.
func (s *Session) endedLocked() {
	if s.repeat == RepeatOne {
		s.position = 0
		if err := s.media.Seek(0); err == nil {
			if err := s.media.Play(); err == nil {
				s.status = StatusPlaying
				return
			}
		}
		// the handle could not rewind; reload the same slot
		_ = s.loadIndexLocked(s.current)
		return
	}
	if s.repeat == RepeatNone && !s.shuffle && s.current == len(s.queue)-1 {
		s.media.Pause()
		s.status = StatusEnded
		s.position = s.duration
		return
	}
	s.nextLocked()
}

// TogglePlay switches between playing and paused. It does nothing in other states.
func (s *Session) TogglePlay() error {
	return s.update(s.togglePlayLocked)
}

func (s *Session) togglePlayLocked() error {
	switch s.status {
	case StatusPlaying:
		s.media.Pause()
		s.status = StatusPaused
	case StatusPaused:
		if err := s.media.Play(); err != nil {
			track, _ := s.currentLocked()
			s.status = StatusError
			s.lastErr = newLoadError(track, err)
			return s.lastErr
		}
		s.status = StatusPlaying
	}
	return nil
}

// SeekTo moves the play head, clamped into [0, duration]. It is a no-op until the
// source has reported its duration. Seeking an ended track leaves it paused there.
func (s *Session) SeekTo(sec float64) error {
	return s.update(func() error {
		if !s.durationKnown || s.media == nil || math.IsNaN(sec) {
			return nil
		}
		t := lo.Clamp(sec, 0, s.duration)
		if err := s.media.Seek(t); err != nil {
			return err
		}
		s.position = t
		if s.status == StatusEnded {
			s.status = StatusPaused
		}
		return nil
	})
}

// SetVolume clamps v into [0, 1]. NaN leaves the volume unchanged.
func (s *Session) SetVolume(v float64) {
	_ = s.update(func() error {
		s.volume = clampVolume(v, s.volume)
		if s.media != nil {
			s.media.SetVolume(s.volume)
		}
		return nil
	})
}

func clampVolume(v, prev float64) float64 {
	if math.IsNaN(v) {
		return prev
	}
	return lo.Clamp(v, 0, 1)
}

// Next advances to the following slot, wrapping at the end. With shuffle on it picks
// any slot other than the current one. An empty queue is a no-op.
func (s *Session) Next() error {
	return s.update(func() error {
		s.nextLocked()
		return s.lastErrIfFailed()
	})
}

func (s *Session) nextLocked() {
	n := len(s.queue)
	if n == 0 {
		return
	}
	var idx int
	switch {
	case s.shuffle && n > 1 && s.current >= 0:
		idx = s.intn(n - 1)
		if idx >= s.current {
			idx++
		}
	case s.shuffle && s.current < 0:
		idx = s.intn(n)
	case s.current < 0:
		idx = 0
	default:
		idx = (s.current + 1) % n
	}
	_ = s.loadIndexLocked(idx)
}

func (s *Session) lastErrIfFailed() error {
	if s.status == StatusError {
		return s.lastErr
	}
	return nil
}

// Previous restarts the current track once it has played past the restart window,
// otherwise moves to the prior slot with wraparound.
func (s *Session) Previous() error {
	return s.update(func() error {
		n := len(s.queue)
		if n == 0 {
			return nil
		}
		if s.current >= 0 && s.position > restartWindow && s.media != nil {
			return s.restartLocked()
		}
		idx := 0
		if s.current >= 0 {
			idx = (s.current - 1 + n) % n
		}
		_ = s.loadIndexLocked(idx)
		return s.lastErrIfFailed()
	})
}

// restartLocked rewinds the current track. An ended track starts playing again;
// a paused one stays paused at 0.
func (s *Session) restartLocked() error {
	if err := s.media.Seek(0); err != nil {
		return err
	}
	s.position = 0
	if s.status != StatusEnded {
		return nil
	}
	if err := s.media.Play(); err != nil {
		track, _ := s.currentLocked()
		s.status = StatusError
		s.lastErr = newLoadError(track, err)
		return s.lastErr
	}
	s.status = StatusPlaying
	return nil
}

func (s *Session) SetRepeat(r RepeatMode) {
	_ = s.update(func() error {
		s.repeat = r
		return nil
	})
}

func (s *Session) SetShuffle(on bool) {
	_ = s.update(func() error {
		s.shuffle = on
		return nil
	})
}

func (s *Session) ToggleShuffle() {
	_ = s.update(func() error {
		s.shuffle = !s.shuffle
		return nil
	})
}

// Analyser exposes the tap attached to the owned Media, building the Media if needed.
// It returns nil when the Media has no tap or cannot be built.
func (s *Session) Analyser() Analyser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	m, err := s.mediaLocked()
	if err != nil {
		return nil
	}
	return m.Analyser()
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		Status:       s.status,
		Queue:        slices.Clone(s.queue),
		CurrentIndex: s.current,
		PositionSec:  s.position,
		DurationSec:  s.duration,
		Volume:       s.volume,
		Repeat:       s.repeat,
		Shuffle:      s.shuffle,
	}
	if s.status == StatusError {
		st.Err = s.lastErr
	}
	return st
}

// Close releases the Media. Pending events are discarded and later calls fail with
// ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.seq++
	if s.media == nil {
		return nil
	}
	return s.media.Close()
}
