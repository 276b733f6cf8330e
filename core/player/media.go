package player

// EventKind 媒体事件类型
type EventKind int

const (
	// EventReady: the source can begin playback. Duration is set when known.
	EventReady EventKind = iota
	EventTimeUpdate
	EventEnded
	EventError
	// EventInterrupted: the platform paused output (competing audio session). Not an error.
	EventInterrupted
)

// Event is delivered by a Media to the notify callback of the Load that armed it.
type Event struct {
	Kind     EventKind
	Duration float64 // seconds, EventReady
	Position float64 // seconds, EventTimeUpdate
	Err      error   // EventError
}

// Media is the single media-rendering handle a Session owns.
//
// Load replaces the current source and returns immediately; the outcome arrives later
// through notify. Implementations must not call notify synchronously from inside any
// Media method, and must stop delivering events for a source once Load is called again.
// The Session still guards against late events with its own sequence token.
type Media interface {
	Load(src string, notify func(Event))
	Play() error
	Pause()
	Seek(sec float64) error
	SetVolume(v float64)
	// Analyser returns the analysis tap attached to this handle, or nil.
	Analyser() Analyser
	Close() error
}

// Analyser is a read-only, lossy view of the live signal. It keeps no history beyond
// the current window.
type Analyser interface {
	// Samples returns the most recent n mono samples in chronological order.
	Samples(n int) []float64
}

// MediaFactory builds the Media on first use.
type MediaFactory func() (Media, error)
