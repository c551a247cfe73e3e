package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailtrack/internal/geo"
	"trailtrack/internal/modules/notify"
	"trailtrack/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateRecording, true},
		{StateRecording, StateFinalizing, true},
		{StateFinalizing, StateIdle, true},
		{StateIdle, StateFinalizing, false},
		{StateRecording, StateRecording, false},
		{StateRecording, StateIdle, false},
		{StateFinalizing, StateRecording, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeNew, "new": ModeNew, "custom": ModeFollowExisting, "public": ModeFollowPublic} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("teleport")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

// Three samples in "new" mode trigger exactly one snap request.
func TestRecorder_SnapsNewRouteOnStop(t *testing.T) {
	h := newHarness(t)
	snapped := geo.Track{helsinkiA, {Latitude: 60.1702, Longitude: 24.9361}, helsinkiC}
	h.snapper.result = snapped
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	assert.Equal(t, StateRecording, h.rec.State())

	h.feed(t, helsinkiA, helsinkiB, helsinkiC)
	h.clock.Advance(95*time.Second + 700*time.Millisecond)

	snap := h.rec.Snapshot()
	want := geo.DistanceMeters(helsinkiA, helsinkiB) + geo.DistanceMeters(helsinkiB, helsinkiC)
	assert.InDelta(t, want, snap.DistanceMeters, 1e-9)
	assert.Greater(t, snap.DistanceMeters, 120.0)
	assert.Less(t, snap.DistanceMeters, 135.0)
	assert.Len(t, snap.Points, 3)
	assert.Equal(t, int64(95), snap.ElapsedSeconds)

	res, err := h.rec.Stop(ctx, "Esplanadi")
	require.NoError(t, err)

	require.Len(t, h.snapper.calls, 1)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, h.snapper.calls[0])
	assert.True(t, res.Snapped)
	assert.Equal(t, snapped, res.Route.Path)
	assert.Equal(t, "Esplanadi", res.Route.Name)
	assert.Equal(t, int64(95), res.Route.DurationSeconds)
	assert.InDelta(t, want, res.Route.LengthMeters, 1e-9)
	assert.Equal(t, "route-1", string(res.RouteID))

	require.Len(t, h.saver.saved, 1)
	assert.Equal(t, "hiker-1", string(h.saver.saved[0].owner))
	assert.Equal(t, StateIdle, h.rec.State())
	assert.Equal(t, []notify.Kind{notify.KindRouteSaved}, h.notifier.got())
}

// A failing snap keeps the raw buffer untouched.
func TestRecorder_SnapFailureFallsBackToRawTrack(t *testing.T) {
	h := newHarness(t)
	h.snapper.err = errBoom
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA, helsinkiB, helsinkiC)

	res, err := h.rec.Stop(ctx, "raw")
	require.NoError(t, err)
	assert.False(t, res.Snapped)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, res.Route.Path)
	require.Len(t, h.saver.saved, 1)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, h.saver.saved[0].route.Path)
	// snap failures are silent to the user
	assert.Equal(t, []notify.Kind{notify.KindRouteSaved}, h.notifier.got())
}

func TestRecorder_EmptySnapResultFallsBack(t *testing.T) {
	h := newHarness(t)
	h.snapper.result = geo.Track{}
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA, helsinkiB)

	res, err := h.rec.Stop(ctx, "x")
	require.NoError(t, err)
	assert.False(t, res.Snapped)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB}, res.Route.Path)
}

// Fewer than two points never reach the snapper.
func TestRecorder_ShortTrackSkipsSnapping(t *testing.T) {
	for _, n := range []int{0, 1} {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
		if n == 1 {
			h.feed(t, helsinkiA)
		}

		res, err := h.rec.Stop(ctx, "short")
		require.NoError(t, err)
		assert.Empty(t, h.snapper.calls)
		assert.Len(t, res.Route.Path, n)
		assert.NotNil(t, res.Route.Path)
		assert.Equal(t, 0.0, res.Route.LengthMeters)
		require.Len(t, h.saver.saved, 1)
	}
}

func TestRecorder_FollowModesNeverSnap(t *testing.T) {
	base := geo.Track{helsinkiA, helsinkiC}
	for _, mode := range []Mode{ModeFollowExisting, ModeFollowPublic} {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.rec.Start(ctx, mode, base))
		h.feed(t, helsinkiA, helsinkiB, helsinkiC)

		snap := h.rec.Snapshot()
		assert.Equal(t, mode, snap.Mode)
		assert.Equal(t, base, snap.BasePath)

		res, err := h.rec.Stop(ctx, "follow")
		require.NoError(t, err)
		assert.Empty(t, h.snapper.calls)
		assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, res.Route.Path)
		assert.Equal(t, mode, res.Mode)
	}
}

// A second Start must not replace or corrupt the active session.
func TestRecorder_StartWhileRecording(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA, helsinkiB)
	before := h.rec.Snapshot()

	err := h.rec.Start(ctx, ModeFollowPublic, geo.Track{helsinkiC})
	assert.ErrorIs(t, err, ErrAlreadyRecording)

	after := h.rec.Snapshot()
	assert.Equal(t, before.Points, after.Points)
	assert.Equal(t, before.DistanceMeters, after.DistanceMeters)
	assert.Equal(t, ModeNew, after.Mode)

	subs, _ := h.source.counts()
	assert.Equal(t, 1, subs)
}

// A repeated fix adds a point but no distance.
func TestRecorder_ZeroMovementSample(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))

	h.feed(t, helsinkiA, helsinkiB)
	before := h.rec.Snapshot()
	h.feed(t, helsinkiB)
	after := h.rec.Snapshot()

	assert.Equal(t, before.DistanceMeters, after.DistanceMeters)
	assert.Len(t, after.Points, len(before.Points)+1)
}

func TestRecorder_PermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.source.SetPermission(false)

	err := h.rec.Start(context.Background(), ModeNew, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, StateIdle, h.rec.State())
	assert.Equal(t, []notify.Kind{notify.KindPermissionDenied}, h.notifier.got())

	subs, _ := h.source.counts()
	assert.Zero(t, subs)

	// immediately restartable once permission is granted
	h.source.SetPermission(true)
	require.NoError(t, h.rec.Start(context.Background(), ModeNew, nil))
}

func TestRecorder_StopWhileIdle(t *testing.T) {
	h := newHarness(t)
	_, err := h.rec.Stop(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.Empty(t, h.saver.saved)
	assert.Empty(t, h.notifier.got())
	assert.Equal(t, StateIdle, h.rec.State())
}

func TestRecorder_SaveFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.saver.err = errBoom
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA)

	res, err := h.rec.Stop(ctx, "lost")
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Equal(t, "lost", res.Route.Name)
	assert.Len(t, res.Route.Path, 1)
	assert.Empty(t, res.RouteID)
	assert.Equal(t, StateIdle, h.rec.State())
	assert.Equal(t, []notify.Kind{notify.KindSaveFailed}, h.notifier.got())

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
}

// The device hanging up while the snap is in flight must not cost the route.
func TestRecorder_CallerCancelDuringSnapStillSaves(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.snapper.during = func(context.Context) { cancel() }

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA, helsinkiB, helsinkiC)

	res, err := h.rec.Stop(ctx, "dropped call")
	require.NoError(t, err)
	assert.Equal(t, types.ID("route-1"), res.RouteID)
	assert.False(t, res.Snapped)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, res.Route.Path)
	require.Len(t, h.saver.saved, 1)
	assert.Equal(t, res.Route, h.saver.saved[0].route)
	assert.Equal(t, []notify.Kind{notify.KindRouteSaved}, h.notifier.got())
	assert.Equal(t, StateIdle, h.rec.State())
}

func TestRecorder_SaveFailureAfterCancelIsNotified(t *testing.T) {
	h := newHarness(t)
	h.saver.err = errBoom
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.snapper.during = func(context.Context) { cancel() }

	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA, helsinkiB)

	res, err := h.rec.Stop(ctx, "")
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Len(t, res.Route.Path, 2)
	assert.Equal(t, []notify.Kind{notify.KindSaveFailed}, h.notifier.got())
}

func TestRecorder_UnsubscribesOncePerSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
		h.feed(t, helsinkiA)
		_, err := h.rec.Stop(ctx, "")
		require.NoError(t, err)
	}
	subs, closed := h.source.counts()
	assert.Equal(t, 3, subs)
	assert.Equal(t, 3, closed)
}

func TestRecorder_SamplesAfterStopAreDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	h.feed(t, helsinkiA)

	_, err := h.rec.Stop(ctx, "done")
	require.NoError(t, err)

	_, err = h.source.Push(ctx, Sample{Position: helsinkiB})
	assert.ErrorIs(t, err, ErrNoSubscription)
	assert.Empty(t, h.rec.Snapshot().Points)
}

func TestRecorder_LateSampleFromOldSessionIgnored(t *testing.T) {
	h := newHarness(t)
	old := NewSession(ModeNew, nil, h.clock.Now())
	require.NoError(t, h.rec.Start(context.Background(), ModeNew, nil))

	h.rec.onSample(old, Sample{Position: helsinkiA})
	assert.Empty(t, h.rec.Snapshot().Points)
	assert.Empty(t, old.Points)
}

func TestRecorder_DefaultRouteName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx, ModeNew, nil))
	res, err := h.rec.Stop(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "Hike 2026-06-01 09:00", res.Route.Name)
}

func TestRecorder_CloseDiscardsSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rec.Start(context.Background(), ModeNew, nil))
	h.feed(t, helsinkiA)

	h.rec.Close()
	assert.Equal(t, StateIdle, h.rec.State())
	assert.Empty(t, h.saver.saved)
	_, closed := h.source.counts()
	assert.Equal(t, 1, closed)
}

func TestRecorder_ReplaySource(t *testing.T) {
	track := []Sample{{Position: helsinkiA}, {Position: helsinkiB}, {Position: helsinkiC}}
	src := NewReplaySource(track)
	saver := &fakeSaver{}
	rec := NewRecorder("replayer", RecorderDeps{Source: src, Saver: saver}, RecorderOptions{})
	ctx := context.Background()

	require.NoError(t, rec.Start(ctx, ModeFollowExisting, nil))
	select {
	case <-src.Drained():
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not drain")
	}
	res, err := rec.Stop(ctx, "replayed")
	require.NoError(t, err)
	assert.Equal(t, geo.Track{helsinkiA, helsinkiB, helsinkiC}, res.Route.Path)
	assert.InDelta(t, geo.Track(res.Route.Path).LengthMeters(), res.Route.LengthMeters, 1e-9)
}
