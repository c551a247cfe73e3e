// README: Session is the mutable aggregate owned by one recording.
package tracking

import (
	"time"

	"trailtrack/internal/geo"
)

// Session holds the point buffer and running distance of one recording.
// It is owned by exactly one Recorder; the Recorder serialises access.
type Session struct {
	Mode           Mode
	BasePath       geo.Track
	StartedAt      time.Time
	Points         geo.Track
	DistanceMeters float64
}

func NewSession(mode Mode, basePath geo.Track, startedAt time.Time) *Session {
	return &Session{
		Mode:      mode,
		BasePath:  basePath.Clone(),
		StartedAt: startedAt,
		Points:    geo.Track{},
	}
}

// Append adds the fix and returns the distance it contributed. Only the last
// segment is measured, the buffer is never re-summed.
func (s *Session) Append(c geo.Coordinate) float64 {
	delta := 0.0
	if n := len(s.Points); n > 0 {
		delta = geo.DistanceMeters(s.Points[n-1], c)
	}
	s.Points = append(s.Points, c)
	s.DistanceMeters += delta
	return delta
}

// ElapsedSeconds is floor((now - StartedAt) / 1s), never negative.
func (s *Session) ElapsedSeconds(now time.Time) int64 {
	d := now.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// ShouldSnap reports whether finalizing this session issues a snap request.
func (s *Session) ShouldSnap() bool {
	return s.Mode == ModeNew && len(s.Points) >= 2
}

// Finish builds the FinishedRoute. A nil path means the raw buffer.
func (s *Session) Finish(name string, path geo.Track, now time.Time) FinishedRoute {
	if path == nil {
		path = s.Points.Clone()
	}
	return FinishedRoute{
		Name:            name,
		LengthMeters:    s.DistanceMeters,
		DurationSeconds: s.ElapsedSeconds(now),
		Path:            path,
	}
}

func (s *Session) snapshot(state State, now time.Time) Snapshot {
	return Snapshot{
		State:          state,
		Mode:           s.Mode,
		ElapsedSeconds: s.ElapsedSeconds(now),
		DistanceMeters: s.DistanceMeters,
		Points:         s.Points.Clone(),
		BasePath:       s.BasePath.Clone(),
	}
}
