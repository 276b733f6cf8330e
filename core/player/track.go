package player

import "fmt"

// Track is an immutable snapshot of a song as loaded into a queue slot.
type Track struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist,omitempty"`
	StreamURL   string  `json:"streamUrl"`
	CoverURL    string  `json:"coverUrl,omitempty"`
	DurationSec float64 `json:"durationSec,omitempty"`
}

// Status 播放状态
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// RepeatMode 循环模式
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "none"
	}
}

// ParseRepeatMode accepts "none", "one" and "all".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "none", "off", "":
		return RepeatNone, nil
	case "one":
		return RepeatOne, nil
	case "all":
		return RepeatAll, nil
	}
	return RepeatNone, fmt.Errorf("unknown repeat mode %q", s)
}
