package tourstore

import (
	"context"
	"encoding/json"
	"time"

	"backend-tourguide/internal/tour"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Broadcaster interface {
	Broadcast(sessionID string, payload []byte)
}

// ProgressEvent is what live viewers of a tour receive after every
// acknowledged store write.
type ProgressEvent struct {
	TourID string `json:"tour_id"`
	tour.Patch
	At time.Time `json:"at"`
}

// Live wraps a Store and broadcasts every successful write.
type Live struct {
	tour.Store
	hub    Broadcaster
	clock  clock.Clock
	logger *zap.Logger
}

// NewLive stamps update events with clk; a nil clock means wall time.
func NewLive(store tour.Store, hub Broadcaster, clk clock.Clock, logger *zap.Logger) *Live {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{Store: store, hub: hub, clock: clk, logger: logger}
}

func (l *Live) Create(ctx context.Context, in tour.NewSession) (string, time.Time, error) {
	id, startedAt, err := l.Store.Create(ctx, in)
	if err != nil {
		return "", time.Time{}, err
	}
	active := tour.StatusActive
	l.publish(id, tour.Patch{Status: &active}, startedAt)
	return id, startedAt, nil
}

func (l *Live) Update(ctx context.Context, id string, patch tour.Patch) error {
	if err := l.Store.Update(ctx, id, patch); err != nil {
		return err
	}
	l.publish(id, patch, l.clock.Now())
	return nil
}

func (l *Live) publish(id string, patch tour.Patch, at time.Time) {
	if l.hub == nil {
		return
	}
	payload, err := json.Marshal(ProgressEvent{TourID: id, Patch: patch, At: at})
	if err != nil {
		l.logger.Warn("progress event encode error", zap.String("tour_id", id), zap.Error(err))
		return
	}
	l.hub.Broadcast(id, payload)
}
