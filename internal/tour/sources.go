package tour

import (
	"context"
	"time"
)

// Store is the remote, durable record of tour sessions. Updates are
// last-write-wins; implementations must reject updates to completed tours.
type Store interface {
	Create(ctx context.Context, s NewSession) (id string, startedAt time.Time, err error)
	Update(ctx context.Context, id string, patch Patch) error
	List(ctx context.Context, q Query) ([]Session, error)
}

type WatchOptions struct {
	HighAccuracy bool
	MaxAge       time.Duration
	Timeout      time.Duration
}

func DefaultWatchOptions() WatchOptions {
	return WatchOptions{HighAccuracy: true, MaxAge: 10 * time.Second, Timeout: 5 * time.Second}
}

type Subscription interface {
	Stop()
}

// LocationSource delivers geolocation fixes. Watch must not invoke its
// callbacks before it returns; deliveries racing a Stop are discarded by
// the controller.
type LocationSource interface {
	CurrentPosition(ctx context.Context) (Sample, error)
	Watch(opts WatchOptions, onSample func(Sample), onError func(error)) (Subscription, error)
}

type VideoStream interface {
	Close() error
}

type CameraSource interface {
	Acquire(ctx context.Context) (VideoStream, error)
}
