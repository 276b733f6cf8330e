package player

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQueue      = errors.New("queue is empty")
	ErrIndexOutOfRange = errors.New("queue index out of range")
	ErrTrackNotInQueue = errors.New("track not in queue")
	ErrSessionClosed   = errors.New("playback session closed")
	// ErrTrackNotFound is returned by resolvers for an unknown track id.
	ErrTrackNotFound = errors.New("track not found")

	// Media implementations wrap load failures with these so the session can tell
	// a missing stream from one it could not decode.
	ErrSourceNotFound = errors.New("media source not found")
	ErrDecode         = errors.New("media decode failed")
)

// LoadErrorKind 加载失败分类
type LoadErrorKind int

const (
	LoadTransport LoadErrorKind = iota
	LoadNotFound
	LoadDecode
)

func (k LoadErrorKind) String() string {
	switch k {
	case LoadNotFound:
		return "not found"
	case LoadDecode:
		return "decode"
	default:
		return "transport"
	}
}

// LoadError is the session's record of a failed load or playback attempt.
type LoadError struct {
	TrackID int64
	URL     string
	Kind    LoadErrorKind
	Err     error
}

func newLoadError(t Track, err error) *LoadError {
	kind := LoadTransport
	switch {
	case errors.Is(err, ErrSourceNotFound):
		kind = LoadNotFound
	case errors.Is(err, ErrDecode):
		kind = LoadDecode
	}
	return &LoadError{TrackID: t.ID, URL: t.StreamURL, Kind: kind, Err: err}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load track %d (%s): %s: %v", e.TrackID, e.URL, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
