// README: Location source contract plus the push-driven and replay implementations.
package tracking

import (
	"context"
	"sync"
	"time"

	"trailtrack/internal/geo"
)

// LocationSource is the platform location service seen by the Recorder.
type LocationSource interface {
	RequestPermission(ctx context.Context) error
	Subscribe(ctx context.Context, opts SamplingOptions) (Subscription, error)
}

// Subscription is a cancellable stream of samples. Next blocks until a sample
// arrives, the subscription is closed (ErrSubscriptionClosed) or ctx ends.
type Subscription interface {
	Next(ctx context.Context) (Sample, error)
	Close() error
}

// chanSubscription is the channel-backed Subscription shared by the sources
// in this file.
type chanSubscription struct {
	samples chan Sample
	done    chan struct{}
	once    sync.Once
}

func newChanSubscription() *chanSubscription {
	return &chanSubscription{
		samples: make(chan Sample),
		done:    make(chan struct{}),
	}
}

func (s *chanSubscription) Next(ctx context.Context) (Sample, error) {
	select {
	case smp := <-s.samples:
		return smp, nil
	case <-s.done:
		return Sample{}, ErrSubscriptionClosed
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
}

func (s *chanSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// deliver hands the sample to the consumer and waits for its Ack.
func (s *chanSubscription) deliver(ctx context.Context, smp Sample) error {
	ack := make(chan struct{}, 1)
	smp.ack = ack
	select {
	case s.samples <- smp:
	case <-s.done:
		return ErrSubscriptionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushSource is fed by the device over HTTP. The device reports its
// permission state when a recording starts and then pushes fixes.
type PushSource struct {
	now func() time.Time

	mu      sync.Mutex
	granted bool
	opts    SamplingOptions
	sub     *chanSubscription
	last    *Sample
}

func NewPushSource(now func() time.Time) *PushSource {
	if now == nil {
		now = time.Now
	}
	return &PushSource{now: now}
}

func (p *PushSource) SetPermission(granted bool) {
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
}

func (p *PushSource) RequestPermission(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.granted {
		return ErrPermissionDenied
	}
	return nil
}

func (p *PushSource) Subscribe(ctx context.Context, opts SamplingOptions) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		_ = p.sub.Close()
	}
	p.sub = newChanSubscription()
	p.opts = opts
	p.last = nil
	return p.sub, nil
}

// Push delivers one fix. It returns false when the sampling bounds dropped
// the fix, and ErrNoSubscription when nothing is listening.
func (p *PushSource) Push(ctx context.Context, smp Sample) (bool, error) {
	if !smp.Position.Valid() {
		return false, ErrInvalidSample
	}
	if smp.RecordedAt.IsZero() {
		smp.RecordedAt = p.now()
	}

	p.mu.Lock()
	sub := p.sub
	if sub == nil {
		p.mu.Unlock()
		return false, ErrNoSubscription
	}
	if throttled(p.opts, p.last, smp) {
		p.mu.Unlock()
		return false, nil
	}
	prev := p.last
	p.last = &smp
	p.mu.Unlock()

	if err := sub.deliver(ctx, smp); err != nil {
		p.mu.Lock()
		if p.last == &smp {
			p.last = prev
		}
		p.mu.Unlock()
		if err == ErrSubscriptionClosed {
			return false, ErrNoSubscription
		}
		return false, err
	}
	return true, nil
}

// throttled applies both sampling bounds against the last accepted fix. The
// interval bound is skipped when either fix has no timestamp.
func throttled(opts SamplingOptions, last *Sample, smp Sample) bool {
	if last == nil {
		return false
	}
	if opts.MinInterval > 0 && !last.RecordedAt.IsZero() && !smp.RecordedAt.IsZero() &&
		smp.RecordedAt.Sub(last.RecordedAt) < opts.MinInterval {
		return true
	}
	if opts.MinDistanceMeters > 0 && geo.DistanceMeters(last.Position, smp.Position) < opts.MinDistanceMeters {
		return true
	}
	return false
}

// Release drops the current subscription, if any.
func (p *PushSource) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		_ = p.sub.Close()
		p.sub = nil
	}
}

// ReplaySource emits a fixed track, one sample per Next call, and then
// blocks until closed. Samples outside the subscription's sampling bounds
// are skipped, as PushSource does. Drained is closed once every sample was
// consumed.
type ReplaySource struct {
	samples []Sample
	drained chan struct{}
}

func NewReplaySource(samples []Sample) *ReplaySource {
	return &ReplaySource{samples: samples, drained: make(chan struct{})}
}

func (r *ReplaySource) RequestPermission(ctx context.Context) error { return nil }

func (r *ReplaySource) Subscribe(ctx context.Context, opts SamplingOptions) (Subscription, error) {
	return &replaySubscription{src: r, opts: opts, done: make(chan struct{})}, nil
}

func (r *ReplaySource) Drained() <-chan struct{} { return r.drained }

type replaySubscription struct {
	src  *ReplaySource
	opts SamplingOptions
	last *Sample
	idx  int
	done chan struct{}
	once sync.Once
	fin  sync.Once
}

// Next only advances once the consumer asks again, so by the time Drained
// fires the last sample has been fully processed.
func (s *replaySubscription) Next(ctx context.Context) (Sample, error) {
	for s.idx < len(s.src.samples) {
		smp := s.src.samples[s.idx]
		s.idx++
		if throttled(s.opts, s.last, smp) {
			continue
		}
		s.last = &smp
		return smp, nil
	}
	s.fin.Do(func() { close(s.src.drained) })
	select {
	case <-s.done:
		return Sample{}, ErrSubscriptionClosed
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}
}

func (s *replaySubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
