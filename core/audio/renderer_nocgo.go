//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"errors"
	"net/http"

	"Bt1Stream/core/player"
)

// Available reports whether this build can drive a sound device. Output needs cgo for
// the native sound libraries.
const Available = false

var ErrNoAudio = errors.New("audio output unavailable: no native sound backend in this build")

// Renderer is a stand-in so callers compile; NewRenderer always fails.
type Renderer struct{}

func NewRenderer(client *http.Client) (*Renderer, error) {
	return nil, ErrNoAudio
}

func (r *Renderer) Load(src string, notify func(player.Event)) {}
func (r *Renderer) Play() error                                 { return ErrNoAudio }
func (r *Renderer) Pause()                                      {}
func (r *Renderer) Seek(sec float64) error                      { return ErrNoAudio }
func (r *Renderer) SetVolume(v float64)                         {}
func (r *Renderer) Analyser() player.Analyser                   { return nil }
func (r *Renderer) Close() error                                { return nil }
