// README: Recorder drives one user's recording lifecycle (Idle -> Recording -> Finalizing -> Idle).
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/notify"
	"trailtrack/internal/types"
)

// Snapper aligns a raw track with the trail network.
type Snapper interface {
	Snap(ctx context.Context, path geo.Track) (geo.Track, error)
}

// Saver persists a finished route on behalf of owner and returns its ID.
type Saver interface {
	Save(ctx context.Context, owner types.ID, route FinishedRoute) (types.ID, error)
}

// Notifier surfaces user-visible outcomes.
type Notifier interface {
	Notify(ctx context.Context, owner types.ID, n notify.Notification) error
}

type RecorderDeps struct {
	Source   LocationSource
	Snapper  Snapper
	Saver    Saver
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

// defaultSaveTimeout bounds Save and the outcome notification once the
// caller's context has been detached.
const defaultSaveTimeout = 20 * time.Second

type RecorderOptions struct {
	Sampling    SamplingOptions
	SnapTimeout time.Duration
	SaveTimeout time.Duration
}

type Recorder struct {
	owner    types.ID
	source   LocationSource
	snapper  Snapper
	saver    Saver
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	opts     RecorderOptions

	// opMu serialises Start/Stop/Close; mu guards the fields below it.
	opMu    sync.Mutex
	mu      sync.Mutex
	state   State
	session *Session
	sub     Subscription
	pumped  chan struct{}
}

func NewRecorder(owner types.ID, deps RecorderDeps, opts RecorderOptions) *Recorder {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Recorder{
		owner:    owner,
		source:   deps.Source,
		snapper:  deps.Snapper,
		saver:    deps.Saver,
		notifier: deps.Notifier,
		log:      deps.Logger.With(zap.String("owner", string(owner))),
		now:      deps.Now,
		opts:     opts,
		state:    StateIdle,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens a new session and subscribes to the location source. Starting
// while a session is active returns ErrAlreadyRecording and leaves the active
// session untouched.
func (r *Recorder) Start(ctx context.Context, mode Mode, basePath geo.Track) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	if st := r.State(); !CanTransition(st, StateRecording) {
		return ErrAlreadyRecording
	}

	if err := r.source.RequestPermission(ctx); err != nil {
		r.log.Info("location permission denied", zap.Error(err))
		r.notify(ctx, notify.PermissionDenied())
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	sub, err := r.source.Subscribe(ctx, r.opts.Sampling)
	if err != nil {
		return fmt.Errorf("subscribe to location source: %w", err)
	}

	sess := NewSession(mode, basePath, r.now())
	pumped := make(chan struct{})

	r.mu.Lock()
	r.session = sess
	r.sub = sub
	r.pumped = pumped
	r.state = StateRecording
	r.mu.Unlock()

	go r.pump(sess, sub, pumped)

	r.log.Info("recording started", zap.String("mode", string(mode)), zap.Int("base_points", len(basePath)))
	return nil
}

func (r *Recorder) pump(sess *Session, sub Subscription, pumped chan struct{}) {
	defer close(pumped)
	for {
		smp, err := sub.Next(context.Background())
		if err != nil {
			return
		}
		r.onSample(sess, smp)
		smp.Ack()
	}
}

// onSample folds one sample into the session. Samples that belong to a
// session which is no longer recording are dropped.
func (r *Recorder) onSample(sess *Session, smp Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || r.session != sess {
		return
	}
	sess.Append(smp.Position)
}

// Stop ends the session, snaps the path when applicable and saves the
// result. The recorder is Idle again when Stop returns, whatever happened.
// A failed save is reported as ErrSaveFailed alongside the populated result.
func (r *Recorder) Stop(ctx context.Context, name string) (StopResult, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if !CanTransition(r.state, StateFinalizing) {
		r.mu.Unlock()
		return StopResult{}, ErrNotRecording
	}
	r.state = StateFinalizing
	sess, sub, pumped := r.session, r.sub, r.pumped
	r.sub = nil
	stoppedAt := r.now()
	r.mu.Unlock()

	defer r.finalize()

	r.release(ctx, sub, pumped)

	if name == "" {
		name = defaultRouteName(sess.StartedAt)
	}

	result := StopResult{Mode: sess.Mode}
	var path geo.Track
	if sess.ShouldSnap() && r.snapper != nil {
		if snapped, err := r.snap(ctx, sess.Points.Clone()); err != nil {
			r.log.Warn("path snapping failed, keeping raw track", zap.Error(err), zap.Int("points", len(sess.Points)))
		} else {
			path = snapped
			result.Snapped = true
		}
	}
	result.Route = sess.Finish(name, path, stoppedAt)

	if r.saver == nil {
		return result, nil
	}

	// The route is final now; a caller that went away must not lose it.
	saveCtx, cancel := r.detached(ctx)
	defer cancel()
	id, err := r.saver.Save(saveCtx, r.owner, result.Route)
	if err != nil {
		r.log.Error("saving route failed", zap.Error(err))
		r.notify(saveCtx, notify.SaveFailed(result.Route.Name))
		return result, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	result.RouteID = id
	r.notify(saveCtx, notify.RouteSaved(result.Route.Name))
	r.log.Info("route saved",
		zap.String("route_id", string(id)),
		zap.Int("points", len(result.Route.Path)),
		zap.Float64("length_m", result.Route.LengthMeters),
		zap.Int64("duration_s", result.Route.DurationSeconds),
		zap.Bool("snapped", result.Snapped))
	return result, nil
}

func (r *Recorder) snap(ctx context.Context, raw geo.Track) (geo.Track, error) {
	if r.opts.SnapTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.SnapTimeout)
		defer cancel()
	}
	snapped, err := r.snapper.Snap(ctx, raw)
	if err != nil {
		return nil, err
	}
	if len(snapped) == 0 {
		return nil, fmt.Errorf("snapper returned an empty path")
	}
	return snapped, nil
}

// detached keeps ctx values but not its cancellation, bounded by SaveTimeout.
func (r *Recorder) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.opts.SaveTimeout
	if timeout <= 0 {
		timeout = defaultSaveTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// release closes the subscription and waits for the pump to exit.
func (r *Recorder) release(ctx context.Context, sub Subscription, pumped chan struct{}) {
	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		r.log.Warn("closing location subscription", zap.Error(err))
	}
	select {
	case <-pumped:
	case <-ctx.Done():
	}
}

func (r *Recorder) finalize() {
	r.mu.Lock()
	r.state = StateIdle
	r.session = nil
	r.pumped = nil
	r.mu.Unlock()
}

// Snapshot returns a copy of the live session for display.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Snapshot{State: r.state, Points: geo.Track{}}
	}
	return r.session.snapshot(r.state, r.now())
}

// Close tears the recorder down, discarding an unfinished session.
func (r *Recorder) Close() {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	sub, pumped := r.sub, r.pumped
	r.sub = nil
	wasRecording := r.state == StateRecording
	r.mu.Unlock()

	if wasRecording {
		r.log.Info("discarding unfinished recording")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.release(ctx, sub, pumped)
	r.finalize()
}

func (r *Recorder) notify(ctx context.Context, n notify.Notification) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, r.owner, n); err != nil {
		r.log.Warn("notification failed", zap.String("kind", string(n.Kind)), zap.Error(err))
	}
}

func defaultRouteName(startedAt time.Time) string {
	return "Hike " + startedAt.Format("2006-01-02 15:04")
}
