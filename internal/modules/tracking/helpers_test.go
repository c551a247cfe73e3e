package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/notify"
	"trailtrack/internal/types"
)

var (
	helsinkiA = geo.Coordinate{Latitude: 60.1695, Longitude: 24.9354}
	helsinkiB = geo.Coordinate{Latitude: 60.1700, Longitude: 24.9360}
	helsinkiC = geo.Coordinate{Latitude: 60.1705, Longitude: 24.9365}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingSource wraps a PushSource and counts subscriptions and closes.
type countingSource struct {
	*PushSource
	mu         sync.Mutex
	subscribed int
	closed     int
}

func (s *countingSource) Subscribe(ctx context.Context, opts SamplingOptions) (Subscription, error) {
	sub, err := s.PushSource.Subscribe(ctx, opts)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.subscribed++
	s.mu.Unlock()
	return &countingSubscription{Subscription: sub, src: s}, nil
}

func (s *countingSource) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed, s.closed
}

type countingSubscription struct {
	Subscription
	src *countingSource
}

func (s *countingSubscription) Close() error {
	s.src.mu.Lock()
	s.src.closed++
	s.src.mu.Unlock()
	return s.Subscription.Close()
}

type fakeSnapper struct {
	mu     sync.Mutex
	calls  []geo.Track
	result geo.Track
	err    error
	// during runs inside Snap, before the result is returned.
	during func(ctx context.Context)
}

func (f *fakeSnapper) Snap(ctx context.Context, path geo.Track) (geo.Track, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path.Clone())
	during, result, err := f.during, f.result, f.err
	f.mu.Unlock()
	if during != nil {
		during(ctx)
	}
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return result, nil
}

type savedRoute struct {
	owner types.ID
	route FinishedRoute
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedRoute
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, owner types.ID, r FinishedRoute) (types.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.saved = append(f.saved, savedRoute{owner: owner, route: r})
	return "route-1", nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []notify.Kind
}

func (f *fakeNotifier) Notify(ctx context.Context, _ types.ID, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.kinds = append(f.kinds, n.Kind)
	return nil
}

func (f *fakeNotifier) got() []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Kind(nil), f.kinds...)
}

type harness struct {
	clock    *fakeClock
	source   *countingSource
	snapper  *fakeSnapper
	saver    *fakeSaver
	notifier *fakeNotifier
	rec      *Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		snapper:  &fakeSnapper{},
		saver:    &fakeSaver{},
		notifier: &fakeNotifier{},
	}
	h.source = &countingSource{PushSource: NewPushSource(h.clock.Now)}
	h.source.SetPermission(true)
	h.rec = NewRecorder("hiker-1", RecorderDeps{
		Source:   h.source,
		Snapper:  h.snapper,
		Saver:    h.saver,
		Notifier: h.notifier,
		Now:      h.clock.Now,
	}, RecorderOptions{SnapTimeout: time.Second})
	t.Cleanup(h.rec.Close)
	return h
}

func (h *harness) feed(t *testing.T, coords ...geo.Coordinate) {
	t.Helper()
	for _, c := range coords {
		ok, err := h.source.Push(context.Background(), Sample{Position: c})
		require.NoError(t, err)
		require.True(t, ok)
	}
}

var errBoom = errors.New("boom")
