package tracking

import (
	"context"
	"sync"

	"backend-tourguide/internal/tour"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrCameraDenied = errors.New("camera access denied")

// FeedSource is a tour.LocationSource fed by the climber's device over HTTP.
// Fixes reported while no watch is open answer the permission probe.
type FeedSource struct {
	clock clock.Clock

	mu       sync.Mutex
	reported bool
	ready    chan struct{}
	fix      tour.Sample
	fixErr   error
	watch    *feedWatch
}

type feedWatch struct {
	src      *FeedSource
	opts     tour.WatchOptions
	onSample func(tour.Sample)
	onError  func(error)
}

func (w *feedWatch) Stop() {
	w.src.mu.Lock()
	defer w.src.mu.Unlock()
	if w.src.watch == w {
		w.src.watch = nil
	}
}

func NewFeedSource(clk clock.Clock) *FeedSource {
	if clk == nil {
		clk = clock.New()
	}
	return &FeedSource{clock: clk, ready: make(chan struct{})}
}

// CurrentPosition returns the latest reported fix, waiting for the first
// report until ctx is done.
func (f *FeedSource) CurrentPosition(ctx context.Context) (tour.Sample, error) {
	f.mu.Lock()
	ready := f.ready
	f.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return tour.Sample{}, errors.Wrap(ctx.Err(), "location probe")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fixErr != nil {
		return tour.Sample{}, f.fixErr
	}
	return f.fix, nil
}

func (f *FeedSource) Watch(opts tour.WatchOptions, onSample func(tour.Sample), onError func(error)) (tour.Subscription, error) {
	if onSample == nil || onError == nil {
		return nil, errors.New("watch callbacks required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &feedWatch{src: f, opts: opts, onSample: onSample, onError: onError}
	f.watch = w
	return w, nil
}

// Push records a fix and hands it to the open watch, reporting whether a
// watch received it. Fix timestamps come from the device clock and are not
// compared with ours; ordering is left to the controller.
func (f *FeedSource) Push(s tour.Sample) bool {
	f.mu.Lock()
	if s.Timestamp.IsZero() {
		s.Timestamp = f.clock.Now()
	}
	f.fix = s
	f.fixErr = nil
	f.markReadyLocked()
	w := f.watch
	f.mu.Unlock()

	if w == nil {
		return false
	}
	w.onSample(s)
	return true
}

// Fail reports a geolocation error. Without an open watch it becomes the
// probe's answer.
func (f *FeedSource) Fail(err error) bool {
	f.mu.Lock()
	w := f.watch
	if w == nil {
		f.fixErr = err
		f.markReadyLocked()
	}
	f.mu.Unlock()

	if w == nil {
		return false
	}
	w.onError(err)
	return true
}

// Watching reports whether a watch is open.
func (f *FeedSource) Watching() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watch != nil
}

func (f *FeedSource) markReadyLocked() {
	if !f.reported {
		f.reported = true
		close(f.ready)
	}
}

// ReportedCamera answers the camera probe with what the device reported.
// The stream itself stays on the device.
type ReportedCamera struct {
	Granted bool
	Reason  string
}

func (c ReportedCamera) Acquire(context.Context) (tour.VideoStream, error) {
	if !c.Granted {
		if c.Reason == "" {
			return nil, ErrCameraDenied
		}
		return nil, errors.Wrap(ErrCameraDenied, c.Reason)
	}
	return &reportedStream{}, nil
}

type reportedStream struct {
	mu     sync.Mutex
	closed bool
}

func (s *reportedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
