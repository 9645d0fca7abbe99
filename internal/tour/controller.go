package tour

import (
	"context"
	"math"
	"sync"
	"time"

	"backend-tourguide/internal/shared/geo"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	tickInterval       = time.Second
	defaultSyncTimeout = 10 * time.Second
)

// Controller owns one tour attempt: the status machine, the distance and
// duration counters and the synchronisation of progress to the Store.
// All callbacks and user actions are serialised by mu; remote awaits in
// Start and End happen outside of it so Snapshot stays readable.
type Controller struct {
	identity    Identity
	perms       Permissions
	store       Store
	location    LocationSource
	clock       clock.Clock
	logger      *zap.Logger
	metrics     *Metrics
	accumulator Accumulator
	watchOpts   WatchOptions
	syncTimeout time.Duration

	mu       sync.Mutex
	session  Session
	anchor   *Position
	ending   bool
	closed   bool
	sub      Subscription
	ticker   *clock.Ticker
	tickStop chan struct{}
	// gen changes whenever sampling starts or stops so late callbacks
	// from a previous watch or ticker are dropped.
	gen uint64

	// pending counts store pushes still running; drained is signalled on
	// c.mu when it reaches zero.
	pending int
	drained *sync.Cond
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(ctrl *Controller) {
		if l != nil {
			ctrl.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(ctrl *Controller) {
		ctrl.metrics = m
	}
}

func WithAccumulator(a Accumulator) Option {
	return func(ctrl *Controller) {
		if a != nil {
			ctrl.accumulator = a
		}
	}
}

func WithWatchOptions(o WatchOptions) Option {
	return func(ctrl *Controller) {
		ctrl.watchOpts = o
	}
}

func WithSyncTimeout(d time.Duration) Option {
	return func(ctrl *Controller) {
		if d > 0 {
			ctrl.syncTimeout = d
		}
	}
}

// NewController builds a controller in the pending state. perms is the
// permission gate's result for the page load the attempt belongs to.
func NewController(identity Identity, perms Permissions, store Store, location LocationSource, opts ...Option) *Controller {
	c := &Controller{
		identity:    identity,
		perms:       perms,
		store:       store,
		location:    location,
		clock:       clock.New(),
		logger:      zap.NewNop(),
		accumulator: GreatCircle{},
		watchOpts:   DefaultWatchOptions(),
		syncTimeout: defaultSyncTimeout,
		session:     Session{Identity: identity, Status: StatusPending},
	}
	c.drained = sync.NewCond(&c.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s.LastKnownPosition != nil {
		p := *s.LastKnownPosition
		s.LastKnownPosition = &p
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	return s
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Status
}

func (c *Controller) Permissions() Permissions {
	return c.perms
}

// Start creates the remote session and begins sampling. It fails with
// ErrPermissionsMissing, without any state change, unless both camera and
// location access were granted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if !c.perms.Granted() {
		c.mu.Unlock()
		return ErrPermissionsMissing
	}
	if c.closed || c.session.Status != StatusPending {
		status := c.session.Status
		c.mu.Unlock()
		return invalidTransition(status, "start")
	}
	c.session.Status = StatusStarting
	c.mu.Unlock()

	now := c.clock.Now()
	id, startedAt, err := c.store.Create(ctx, NewSession{Identity: c.identity, StartedAt: now})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.session.Status = StatusPending
		c.metrics.syncFailed(SyncCreate)
		c.logger.Warn("tour start failed",
			zap.String("user_id", c.identity.UserID),
			zap.String("mountain_id", c.identity.MountainID),
			zap.Error(err))
		return withKind(ErrStartFailed, err)
	}

	c.session.ID = id
	c.session.Status = StatusActive
	c.session.DistanceMeters = 0
	c.session.DurationSeconds = 0
	c.session.CurrentSpeedKmh = 0
	c.anchor = nil
	if c.session.StartedAt.IsZero() {
		if startedAt.IsZero() {
			startedAt = now
		}
		c.session.StartedAt = startedAt
	}
	c.metrics.session(StatusActive)
	c.logger.Info("tour started", zap.String("tour_id", id), zap.String("mountain_id", c.identity.MountainID))

	if c.closed {
		return nil
	}
	if err := c.beginSamplingLocked(); err != nil {
		c.failLocked(err)
		return withKind(ErrLocationStream, err)
	}
	return nil
}

// OnSample runs the sample acceptance algorithm. Samples outside the
// active state are ignored.
func (c *Controller) OnSample(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acceptLocked(s)
}

// OnError reports an unrecoverable geolocation failure. It is terminal for
// an active session.
func (c *Controller) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Status != StatusActive || c.ending {
		return
	}
	c.failLocked(err)
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ending || c.session.Status != StatusActive {
		return invalidTransition(c.session.Status, "pause")
	}
	c.stopSamplingLocked()
	c.session.Status = StatusPaused
	c.pushStatusLocked(StatusPaused)
	return nil
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ending || c.closed || c.session.Status != StatusPaused {
		return invalidTransition(c.session.Status, "resume")
	}
	c.session.Status = StatusActive
	c.pushStatusLocked(StatusActive)
	if err := c.beginSamplingLocked(); err != nil {
		c.failLocked(err)
		return withKind(ErrLocationStream, err)
	}
	return nil
}

// End marks the session completed. The local status only becomes
// completed once the store acknowledged the update; until then the session
// keeps its previous status with sampling frozen.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	if c.ending || (c.session.Status != StatusActive && c.session.Status != StatusPaused) {
		status := c.session.Status
		c.mu.Unlock()
		return invalidTransition(status, "end")
	}
	prev := c.session.Status
	c.stopSamplingLocked()
	c.ending = true

	endedAt := c.clock.Now()
	completed := StatusCompleted
	distance := c.session.DistanceMeters
	duration := c.session.DurationSeconds
	patch := Patch{
		Status:          &completed,
		DistanceMeters:  &distance,
		DurationSeconds: &duration,
		EndedAt:         &endedAt,
	}
	id := c.session.ID
	c.mu.Unlock()

	err := c.store.Update(ctx, id, patch)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ending = false

	if err != nil {
		c.metrics.syncFailed(SyncEnd)
		c.logger.Warn("tour end failed", zap.String("tour_id", id), zap.Error(err))
		if prev == StatusActive && !c.closed {
			if werr := c.beginSamplingLocked(); werr != nil {
				c.failLocked(werr)
			}
		}
		return withKind(ErrEndFailed, err)
	}

	c.session.Status = StatusCompleted
	c.session.EndedAt = &endedAt
	c.session.CurrentSpeedKmh = 0
	c.metrics.session(StatusCompleted)
	c.logger.Info("tour completed",
		zap.String("tour_id", id),
		zap.Float64("distance_m", distance),
		zap.Int64("duration_sec", duration))
	return nil
}

// Close releases the location watch and the duration ticker and waits for
// in-flight store pushes. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopSamplingLocked()
	c.drainLocked()
	c.mu.Unlock()
}

// Wait blocks until no fire-and-forget push is running. Pushes issued by
// concurrent callbacks while waiting are waited for too.
func (c *Controller) Wait() {
	c.mu.Lock()
	c.drainLocked()
	c.mu.Unlock()
}

func (c *Controller) drainLocked() {
	for c.pending > 0 {
		c.drained.Wait()
	}
}

func (c *Controller) acceptLocked(s Sample) {
	if c.session.Status != StatusActive || c.ending {
		return
	}

	pos := s.Position()
	if last := c.session.LastKnownPosition; last != nil && pos.Timestamp.Before(last.Timestamp) {
		c.logger.Debug("dropping out-of-order sample",
			zap.String("tour_id", c.session.ID),
			zap.Time("sample_at", pos.Timestamp),
			zap.Time("last_at", last.Timestamp))
		return
	}
	last := pos
	c.session.LastKnownPosition = &last

	if c.anchor == nil {
		anchor := pos
		c.anchor = &anchor
		c.metrics.sampleAccepted(0)
		return
	}

	delta, advance := c.accumulator.Delta(*c.anchor, pos)
	c.session.DistanceMeters += delta
	c.session.CurrentSpeedKmh = speedKmh(s.SpeedMps)
	if advance {
		anchor := pos
		c.anchor = &anchor
	}
	c.metrics.sampleAccepted(delta)

	distance := c.session.DistanceMeters
	c.pushLocked(SyncProgress, Patch{DistanceMeters: &distance, LastPosition: &last})
}

func speedKmh(mps *float64) float64 {
	if mps == nil || math.IsNaN(*mps) || *mps <= 0 {
		return 0
	}
	return geo.MpsToKmh(*mps)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.session.Status != StatusActive || c.ending {
		return
	}
	c.session.DurationSeconds++
}

func (c *Controller) failLocked(err error) {
	c.stopSamplingLocked()
	c.session.Status = StatusError
	c.session.Error = ErrLocationStream.Error()
	c.metrics.session(StatusError)
	c.logger.Warn("location stream failed", zap.String("tour_id", c.session.ID), zap.Error(err))
	if c.session.ID != "" {
		c.pushStatusLocked(StatusError)
	}
}

func (c *Controller) beginSamplingLocked() error {
	c.gen++
	gen := c.gen

	sub, err := c.location.Watch(c.watchOpts,
		func(s Sample) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen == c.gen {
				c.acceptLocked(s)
			}
		},
		func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if gen == c.gen && c.session.Status == StatusActive && !c.ending {
				c.failLocked(err)
			}
		})
	if err != nil {
		return err
	}
	c.sub = sub

	ticker := c.clock.Ticker(tickInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.tickStop = stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.tick(gen)
			}
		}
	}()
	return nil
}

func (c *Controller) stopSamplingLocked() {
	c.gen++
	if c.sub != nil {
		c.sub.Stop()
		c.sub = nil
	}
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.tickStop)
		c.ticker = nil
		c.tickStop = nil
	}
}

func (c *Controller) pushStatusLocked(status Status) {
	c.pushLocked(SyncStatus, Patch{Status: &status})
}

// pushLocked sends patch to the store without waiting. Failures are logged
// and counted; the next push carries fresher values.
func (c *Controller) pushLocked(op string, patch Patch) {
	if c.closed || c.session.ID == "" {
		return
	}
	id := c.session.ID
	c.pending++
	go func() {
		defer c.pushDone()
		ctx, cancel := context.WithTimeout(context.Background(), c.syncTimeout)
		defer cancel()
		if err := c.store.Update(ctx, id, patch); err != nil {
			c.metrics.syncFailed(op)
			c.logger.Warn("tour sync failed",
				zap.String("tour_id", id),
				zap.String("op", op),
				zap.Error(withKind(ErrSyncFailed, err)))
		}
	}()
}

func (c *Controller) pushDone() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		c.drained.Broadcast()
	}
	c.mu.Unlock()
}
