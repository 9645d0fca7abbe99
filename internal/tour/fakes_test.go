package tour

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errStore = errors.New("store error")

type fakeStore struct {
	mu        sync.Mutex
	createErr error
	updateErr error
	// endGate, when set, blocks the completing update until it is closed.
	endGate chan struct{}
	created []NewSession
	patches []Patch
}

func (s *fakeStore) Create(_ context.Context, in NewSession) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, in)
	if s.createErr != nil {
		return "", time.Time{}, s.createErr
	}
	return "tour-1", in.StartedAt, nil
}

func (s *fakeStore) Update(ctx context.Context, _ string, patch Patch) error {
	s.mu.Lock()
	gate := s.endGate
	s.mu.Unlock()

	if gate != nil && patch.Status != nil && *patch.Status == StatusCompleted {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patch)
	return s.updateErr
}

func (s *fakeStore) List(context.Context, Query) ([]Session, error) {
	return nil, nil
}

func (s *fakeStore) setUpdateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *fakeStore) allPatches() []Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Patch(nil), s.patches...)
}

func (s *fakeStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

type fakeSubscription struct {
	mu      sync.Mutex
	stopped bool
}

func (s *fakeSubscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeSubscription) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeLocation struct {
	mu       sync.Mutex
	watchErr error
	probeErr error
	block    bool
	onSample func(Sample)
	onError  func(error)
	subs     []*fakeSubscription
	opts     WatchOptions
}

func (l *fakeLocation) CurrentPosition(ctx context.Context) (Sample, error) {
	if l.block {
		<-ctx.Done()
		return Sample{}, ctx.Err()
	}
	if l.probeErr != nil {
		return Sample{}, l.probeErr
	}
	return Sample{Lat: 40, Lng: 45}, nil
}

func (l *fakeLocation) Watch(opts WatchOptions, onSample func(Sample), onError func(error)) (Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watchErr != nil {
		return nil, l.watchErr
	}
	sub := &fakeSubscription{}
	l.subs = append(l.subs, sub)
	l.onSample = onSample
	l.onError = onError
	l.opts = opts
	return sub, nil
}

func (l *fakeLocation) emit(s Sample) {
	l.mu.Lock()
	cb := l.onSample
	l.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (l *fakeLocation) fail(err error) {
	l.mu.Lock()
	cb := l.onError
	l.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (l *fakeLocation) lastSub() *fakeSubscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.subs) == 0 {
		return nil
	}
	return l.subs[len(l.subs)-1]
}

type fakeStream struct {
	closed bool
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeCamera struct {
	err    error
	calls  int
	stream *fakeStream
}

func (c *fakeCamera) Acquire(context.Context) (VideoStream, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.stream = &fakeStream{}
	return c.stream, nil
}

var granted = Permissions{Camera: PermissionGranted, Location: PermissionGranted}

func sampleAt(lat, lng float64, at time.Time) Sample {
	return Sample{Lat: lat, Lng: lng, Timestamp: at}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
