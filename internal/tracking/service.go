package tracking

import (
	"context"
	"sync"
	"time"

	"backend-tourguide/internal/mountain"
	"backend-tourguide/internal/tour"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultScoreboardLimit = 10
	defaultActiveLimit     = 50
)

var ErrAttemptNotFound = errors.New("tour attempt not found")

// MountainCatalog resolves the mountain a tour page is opened for.
type MountainCatalog interface {
	GetBySlug(ctx context.Context, slug string) (mountain.Mountain, error)
}

// attempt is one tour page load: its permission gate, device feed and controller.
type attempt struct {
	id       string
	userID   string
	mountain MountainRef
	gate     *tour.Gate
	feed     *FeedSource
	ctrl     *tour.Controller
}

func (a *attempt) view() View {
	return View{
		AttemptID:   a.id,
		Mountain:    a.mountain,
		Permissions: a.gate.Permissions(),
		Tour:        a.ctrl.Snapshot(),
	}
}

type Service struct {
	store           tour.Store
	mountains       MountainCatalog
	clock           clock.Clock
	logger          *zap.Logger
	metrics         *tour.Metrics
	probeTimeout    time.Duration
	minDisplacement float64

	mu       sync.Mutex
	attempts map[string]*attempt
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *tour.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.probeTimeout = d
		}
	}
}

func WithMinDisplacement(meters float64) Option {
	return func(s *Service) {
		s.minDisplacement = meters
	}
}

func NewService(store tour.Store, mountains MountainCatalog, opts ...Option) *Service {
	s := &Service{
		store:        store,
		mountains:    mountains,
		clock:        clock.New(),
		logger:       zap.NewNop(),
		probeTimeout: tour.DefaultLocationProbeTimeout,
		attempts:     map[string]*attempt{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open registers a new attempt for the mountain and runs the permission
// gate against the device's reported answers. A denied attempt is still
// returned so the page can explain why it cannot start.
func (s *Service) Open(ctx context.Context, identity tour.Identity, slug string, req OpenRequest) (View, error) {
	m, err := s.mountains.GetBySlug(ctx, slug)
	if err != nil {
		return View{}, err
	}
	identity.MountainID = m.ID
	identity.MountainName = m.Name

	id := uuid.NewString()
	logger := s.logger.With(zap.String("attempt_id", id), zap.String("user_id", identity.UserID))

	feed := NewFeedSource(s.clock)
	if req.Location != nil {
		feed.Push(req.Location.Sample())
	} else if req.LocationError != "" {
		feed.Fail(errors.New(req.LocationError))
	}
	camera := ReportedCamera{Granted: req.Camera == tour.PermissionGranted, Reason: req.CameraError}

	gate := tour.NewGate(camera, feed, s.probeTimeout, logger)
	perms := gate.Check(ctx)

	ctrl := tour.NewController(identity, perms, s.store, feed,
		tour.WithClock(s.clock),
		tour.WithLogger(logger),
		tour.WithMetrics(s.metrics),
		tour.WithAccumulator(tour.NewAccumulator(s.minDisplacement)),
	)

	a := &attempt{
		id:       id,
		userID:   identity.UserID,
		mountain: MountainRef{ID: m.ID, Slug: m.Slug, Name: m.Name},
		gate:     gate,
		feed:     feed,
		ctrl:     ctrl,
	}
	s.mu.Lock()
	s.attempts[id] = a
	s.mu.Unlock()

	logger.Info("tour attempt opened",
		zap.String("mountain", m.Slug),
		zap.String("camera", string(perms.Camera)),
		zap.String("location", string(perms.Location)))
	return a.view(), nil
}

func (s *Service) Get(userID, id string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	return a.view(), nil
}

func (s *Service) Start(ctx context.Context, userID, id string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	err = a.ctrl.Start(ctx)
	return s.settle(a), err
}

// Sample feeds a device fix to the attempt's location watch.
func (s *Service) Sample(userID, id string, sample tour.Sample) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	if !a.feed.Push(sample) {
		s.logger.Debug("fix recorded without an open watch",
			zap.String("attempt_id", id),
			zap.String("status", string(a.ctrl.Status())))
	}
	return a.view(), nil
}

// ReportError feeds a geolocation error; an active tour enters the error state.
func (s *Service) ReportError(userID, id, message string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	if message == "" {
		message = "position unavailable"
	}
	a.feed.Fail(errors.New(message))
	return s.settle(a), nil
}

func (s *Service) Pause(userID, id string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	err = a.ctrl.Pause()
	return a.view(), err
}

func (s *Service) Resume(userID, id string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	err = a.ctrl.Resume()
	return a.view(), err
}

// End waits for the store to acknowledge completion before reporting it.
func (s *Service) End(ctx context.Context, userID, id string) (View, error) {
	a, err := s.lookup(userID, id)
	if err != nil {
		return View{}, err
	}
	err = a.ctrl.End(ctx)
	return s.settle(a), err
}

// Close tears the attempt down, as when the tour page is left.
func (s *Service) Close(userID, id string) error {
	a, err := s.lookup(userID, id)
	if err != nil {
		return err
	}
	s.discard(a)
	return nil
}

func (s *Service) Scoreboard(ctx context.Context, limit int) ([]tour.Session, error) {
	if limit <= 0 {
		limit = defaultScoreboardLimit
	}
	return s.store.List(ctx, tour.Query{Status: tour.StatusCompleted, OrderBy: tour.OrderByDistance, Limit: limit})
}

// Active lists tours currently in progress, newest first.
func (s *Service) Active(ctx context.Context, limit int) ([]tour.Session, error) {
	if limit <= 0 {
		limit = defaultActiveLimit
	}
	return s.store.List(ctx, tour.Query{Status: tour.StatusActive, OrderBy: tour.OrderByStartTime, Limit: limit})
}

// Attempts returns how many attempts are open.
func (s *Service) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

// Shutdown closes every open attempt, draining their pending store writes.
func (s *Service) Shutdown() {
	s.mu.Lock()
	open := make([]*attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		open = append(open, a)
	}
	s.mu.Unlock()

	for _, a := range open {
		s.discard(a)
	}
}

func (s *Service) lookup(userID, id string) (*attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.userID != userID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// settle snapshots the attempt and discards it once it can no longer change.
func (s *Service) settle(a *attempt) View {
	v := a.view()
	if v.Tour.Status.Terminal() {
		s.discard(a)
	}
	return v
}

func (s *Service) discard(a *attempt) {
	s.mu.Lock()
	_, ok := s.attempts[a.id]
	delete(s.attempts, a.id)
	s.mu.Unlock()
	if !ok {
		return
	}
	a.ctrl.Close()
	a.gate.Release()
}
