//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"Bt1Stream/core/player"
	"Bt1Stream/logger"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// Available reports whether this build can drive a sound device.
const Available = true

const (
	outputRate     = beep.SampleRate(44100)
	resampleQ      = 4
	positionPeriod = 250 * time.Millisecond
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return speakerErr
}

// source is one loaded track.
type source struct {
	gen    uint64
	dec    beep.StreamSeekCloser
	format beep.Format
	notify func(player.Event)
	stop   chan struct{}
}

// Renderer plays MP3 streams fetched over HTTP on the local sound device. It
// implements player.Media; the output chain speaker <- Tap <- Volume <- switcher is
// built once and kept for the renderer's lifetime.
type Renderer struct {
	mu     sync.Mutex
	client *http.Client

	sw  *switcher
	vol *effects.Volume
	tap *Tap

	gen    uint64
	cur    *source
	cancel context.CancelFunc
	closed bool
}

func NewRenderer(client *http.Client) (*Renderer, error) {
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("初始化音频设备失败: %w", err)
	}
	if client == nil {
		client = &http.Client{}
	}
	sw := newSwitcher()
	vol := &effects.Volume{Streamer: sw, Base: 2}
	r := &Renderer{
		client: client,
		sw:     sw,
		vol:    vol,
		tap:    NewTap(vol, DefaultTapSize),
	}
	speaker.Play(r.tap)
	return r, nil
}

func (r *Renderer) Load(src string, notify func(player.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.dropLocked()
	r.gen++
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.open(ctx, r.gen, src, notify)
}

// dropLocked detaches and closes the current source.
func (r *Renderer) dropLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	cur := r.cur
	r.cur = nil
	if cur == nil {
		r.sw.detach(nil)
		return
	}
	r.sw.detach(cur.dec)
	close(cur.stop)
}

func (r *Renderer) open(ctx context.Context, gen uint64, url string, notify func(player.Event)) {
	reader, err := OpenRangeReader(ctx, r.client, url)
	if err != nil {
		r.fail(gen, notify, err)
		return
	}
	dec, format, err := mp3.Decode(reader)
	if err != nil {
		_ = reader.Close()
		if ctx.Err() != nil {
			return
		}
		r.fail(gen, notify, fmt.Errorf("%s: %w: %v", url, player.ErrDecode, err))
		return
	}

	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		_ = dec.Close()
		return
	}
	s := &source{gen: gen, dec: dec, format: format, notify: notify, stop: make(chan struct{})}
	r.cur = s
	r.attachLocked(s)
	r.mu.Unlock()

	duration := format.SampleRate.D(dec.Len()).Seconds()
	logger.Debug("音频源就绪",
		logger.String("url", url),
		logger.Int("sampleRate", int(format.SampleRate)),
		logger.Float64("duration", duration))

	notify(player.Event{Kind: player.EventReady, Duration: duration})
	go r.trackPosition(s)
}

// attachLocked routes s through a fresh resampler so no samples buffered before a
// seek leak out after it.
func (r *Renderer) attachLocked(s *source) {
	resampled := beep.Resample(resampleQ, s.format.SampleRate, outputRate, s.dec)
	r.sw.set(resampled, func(err error) { r.finished(s.gen, err) })
}

func (r *Renderer) fail(gen uint64, notify func(player.Event), err error) {
	r.mu.Lock()
	stale := r.closed || gen != r.gen
	r.mu.Unlock()
	if stale {
		return
	}
	logger.Warn("音频源加载失败", logger.ErrorField(err))
	notify(player.Event{Kind: player.EventError, Err: err})
}

func (r *Renderer) finished(gen uint64, err error) {
	r.mu.Lock()
	s := r.cur
	if r.closed || s == nil || s.gen != gen {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if err != nil {
		s.notify(player.Event{Kind: player.EventError, Err: fmt.Errorf("%w: %v", player.ErrDecode, err)})
		return
	}
	s.notify(player.Event{Kind: player.EventEnded})
}

func (r *Renderer) trackPosition(s *source) {
	ticker := time.NewTicker(positionPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		var pos float64
		var active bool
		r.sw.do(func() {
			active = !r.sw.paused && r.sw.attachedLocked()
			pos = s.format.SampleRate.D(s.dec.Position()).Seconds()
		})
		if active {
			s.notify(player.Event{Kind: player.EventTimeUpdate, Position: pos})
		}
	}
}

func (r *Renderer) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return errors.New("no source loaded")
	}
	r.sw.setPaused(false)
	return nil
}

func (r *Renderer) Pause() {
	r.sw.setPaused(true)
}

func (r *Renderer) Seek(sec float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.cur
	if s == nil {
		return nil
	}
	var err error
	r.sw.do(func() {
		n := s.format.SampleRate.N(time.Duration(sec * float64(time.Second)))
		n = min(max(n, 0), s.dec.Len())
		if err = s.dec.Seek(n); err != nil {
			return
		}
		resampled := beep.Resample(resampleQ, s.format.SampleRate, outputRate, s.dec)
		gen := s.gen
		r.sw.setLocked(resampled, func(err error) { r.finished(gen, err) })
	})
	return err
}

// SetVolume maps the linear level v in [0, 1] onto the base-2 gain of effects.Volume.
func (r *Renderer) SetVolume(v float64) {
	speaker.Lock()
	defer speaker.Unlock()
	if v <= 0 {
		r.vol.Silent = true
		return
	}
	r.vol.Silent = false
	r.vol.Volume = math.Log2(math.Min(v, 1))
}

func (r *Renderer) Analyser() player.Analyser {
	return r.tap
}

func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.dropLocked()
	speaker.Clear()
	return nil
}
