// README: Tracking aggregate, recorder states and value types.
package tracking

import (
	"time"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

type Mode string

const (
	ModeNew            Mode = "new"
	ModeFollowExisting Mode = "custom"
	ModeFollowPublic   Mode = "public"
)

// ParseMode maps the wire name to a Mode. The empty string means ModeNew.
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case "", ModeNew:
		return ModeNew, nil
	case ModeFollowExisting, ModeFollowPublic:
		return Mode(v), nil
	default:
		return "", ErrInvalidMode
	}
}

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
)

// AllowedTransitions represents the recorder lifecycle as code.
var AllowedTransitions = map[State][]State{
	StateIdle:       {StateRecording},
	StateRecording:  {StateFinalizing},
	StateFinalizing: {StateIdle},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// AccuracyTier mirrors the platform location accuracy levels.
type AccuracyTier string

const (
	AccuracyBalanced AccuracyTier = "balanced"
	AccuracyHigh     AccuracyTier = "high"
	AccuracyBest     AccuracyTier = "best"
)

// SamplingOptions bound how often the location source emits samples.
type SamplingOptions struct {
	Accuracy          AccuracyTier
	MinInterval       time.Duration
	MinDistanceMeters float64
}

// DefaultSamplingOptions matches the cadence the mobile client uses: one fix
// per second at most, and only after five metres of movement.
func DefaultSamplingOptions() SamplingOptions {
	return SamplingOptions{
		Accuracy:          AccuracyHigh,
		MinInterval:       time.Second,
		MinDistanceMeters: 5,
	}
}

// Sample is one event from the location source.
type Sample struct {
	Position   geo.Coordinate `json:"position"`
	Heading    *float64       `json:"heading,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`

	ack chan<- struct{}
}

// Ack tells the producer that the sample has been consumed. Safe on samples
// that carry no acknowledgement channel.
func (s Sample) Ack() {
	if s.ack == nil {
		return
	}
	select {
	case s.ack <- struct{}{}:
	default:
	}
}

// FinishedRoute is produced once per session and handed to persistence.
type FinishedRoute struct {
	Name            string    `json:"name"`
	LengthMeters    float64   `json:"length_m"`
	DurationSeconds int64     `json:"duration_s"`
	Path            geo.Track `json:"path"`
}

// StopResult describes the outcome of finalizing a session.
type StopResult struct {
	Route   FinishedRoute `json:"route"`
	RouteID types.ID      `json:"route_id,omitempty"`
	Snapped bool          `json:"snapped"`
	Mode    Mode          `json:"mode"`
}

// Snapshot is the read-only live view exposed to callers.
type Snapshot struct {
	State          State     `json:"state"`
	Mode           Mode      `json:"mode,omitempty"`
	ElapsedSeconds int64     `json:"elapsed_s"`
	DistanceMeters float64   `json:"distance_m"`
	Points         geo.Track `json:"points"`
	BasePath       geo.Track `json:"base_path,omitempty"`
}
