// README: Tracking service keeps one Recorder per signed-in user and feeds it device-pushed samples.
package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"trailtrack/internal/geo"
	"trailtrack/internal/types"
)

// LivePublisher shares in-progress positions with other hikers.
type LivePublisher interface {
	Publish(ctx context.Context, p LivePosition) error
	Remove(ctx context.Context, owner types.ID) error
	Nearby(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]NearbyHiker, error)
}

type ServiceDeps struct {
	Snapper  Snapper
	Saver    Saver
	Notifier Notifier
	Live     LivePublisher
	Logger   *zap.Logger
	Now      func() time.Time
}

type Service struct {
	deps ServiceDeps
	opts RecorderOptions

	mu       sync.Mutex
	sessions map[types.ID]*userSession
}

type userSession struct {
	// opMu is held for a whole Start or Stop, source release and live
	// cleanup included.
	opMu     sync.Mutex
	recorder *Recorder
	source   *PushSource
}

func NewService(deps ServiceDeps, opts RecorderOptions) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, opts: opts, sessions: make(map[types.ID]*userSession)}
}

type StartCommand struct {
	Owner             types.ID
	Mode              Mode
	BasePath          geo.Track
	PermissionGranted bool
}

type StopCommand struct {
	Owner types.ID
	Name  string
}

func (s *Service) session(owner types.ID, create bool) *userSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	us, ok := s.sessions[owner]
	if !ok && create {
		src := NewPushSource(s.deps.Now)
		us = &userSession{
			source: src,
			recorder: NewRecorder(owner, RecorderDeps{
				Source:   src,
				Snapper:  s.deps.Snapper,
				Saver:    s.deps.Saver,
				Notifier: s.deps.Notifier,
				Logger:   s.deps.Logger,
				Now:      s.deps.Now,
			}, s.opts),
		}
		s.sessions[owner] = us
	}
	return us
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (Snapshot, error) {
	if cmd.Owner == "" {
		return Snapshot{}, ErrNoOwner
	}
	us := s.session(cmd.Owner, true)
	us.opMu.Lock()
	defer us.opMu.Unlock()
	if us.recorder.State() == StateIdle {
		us.source.SetPermission(cmd.PermissionGranted)
	}
	if err := us.recorder.Start(ctx, cmd.Mode, cmd.BasePath); err != nil {
		return Snapshot{}, err
	}
	return us.recorder.Snapshot(), nil
}

// Push feeds samples in order and returns how many passed the sampling bounds.
func (s *Service) Push(ctx context.Context, owner types.ID, samples []Sample) (int, error) {
	us := s.session(owner, false)
	if us == nil || us.recorder.State() != StateRecording {
		return 0, ErrNotRecording
	}
	accepted := 0
	for _, smp := range samples {
		ok, err := us.source.Push(ctx, smp)
		if err == ErrNoSubscription {
			return accepted, ErrNotRecording
		}
		if err != nil {
			return accepted, err
		}
		if ok {
			accepted++
		}
	}
	if accepted > 0 {
		s.publish(ctx, owner, us.recorder.Snapshot())
	}
	return accepted, nil
}

func (s *Service) Stop(ctx context.Context, cmd StopCommand) (StopResult, error) {
	us := s.session(cmd.Owner, false)
	if us == nil {
		return StopResult{}, ErrNotRecording
	}
	us.opMu.Lock()
	defer us.opMu.Unlock()
	res, err := us.recorder.Stop(ctx, cmd.Name)
	if err == ErrNotRecording {
		return res, err
	}
	us.source.Release()
	if s.deps.Live != nil {
		if rmErr := s.deps.Live.Remove(context.WithoutCancel(ctx), cmd.Owner); rmErr != nil {
			s.deps.Logger.Warn("removing live position", zap.String("owner", string(cmd.Owner)), zap.Error(rmErr))
		}
	}
	return res, err
}

func (s *Service) Snapshot(owner types.ID) Snapshot {
	us := s.session(owner, false)
	if us == nil {
		return Snapshot{State: StateIdle, Points: geo.Track{}}
	}
	return us.recorder.Snapshot()
}

// Nearby lists other hikers recording near center.
func (s *Service) Nearby(ctx context.Context, owner types.ID, center geo.Coordinate, radiusKm float64) ([]NearbyHiker, error) {
	if s.deps.Live == nil {
		return nil, nil
	}
	hikers, err := s.deps.Live.Nearby(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}
	out := hikers[:0]
	for _, h := range hikers {
		if h.Owner != owner {
			out = append(out, h)
		}
	}
	return out, nil
}

// Shutdown discards every unfinished recording.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[types.ID]*userSession)
	s.mu.Unlock()
	for _, us := range sessions {
		us.recorder.Close()
		us.source.Release()
	}
}

func (s *Service) publish(ctx context.Context, owner types.ID, snap Snapshot) {
	if s.deps.Live == nil || len(snap.Points) == 0 {
		return
	}
	err := s.deps.Live.Publish(ctx, LivePosition{
		Owner:          owner,
		Position:       snap.Points[len(snap.Points)-1],
		DistanceMeters: snap.DistanceMeters,
		Mode:           snap.Mode,
		UpdatedAt:      s.deps.Now(),
	})
	if err != nil {
		s.deps.Logger.Warn("publishing live position", zap.String("owner", string(owner)), zap.Error(err))
	}
}
