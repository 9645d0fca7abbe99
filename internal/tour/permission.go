package tour

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

type Permissions struct {
	Camera   PermissionState `json:"camera"`
	Location PermissionState `json:"location"`
}

func (p Permissions) Granted() bool {
	return p.Camera == PermissionGranted && p.Location == PermissionGranted
}

const DefaultLocationProbeTimeout = 5 * time.Second

// Gate probes camera and location access once. A denial is an outcome,
// not an error, and is never retried by the gate.
type Gate struct {
	camera       CameraSource
	location     LocationSource
	probeTimeout time.Duration
	logger       *zap.Logger

	once   sync.Once
	mu     sync.Mutex
	result Permissions
	stream VideoStream
}

func NewGate(camera CameraSource, location LocationSource, probeTimeout time.Duration, logger *zap.Logger) *Gate {
	if probeTimeout <= 0 {
		probeTimeout = DefaultLocationProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		camera:       camera,
		location:     location,
		probeTimeout: probeTimeout,
		logger:       logger,
		result:       Permissions{Camera: PermissionUnknown, Location: PermissionUnknown},
	}
}

// Check runs both probes on the first call and returns the cached result afterwards.
func (g *Gate) Check(ctx context.Context) Permissions {
	g.once.Do(func() {
		camera := g.CheckCameraAccess(ctx)
		location := g.CheckLocationAccess(ctx)
		g.mu.Lock()
		g.result = Permissions{Camera: camera, Location: location}
		g.mu.Unlock()
	})
	return g.Permissions()
}

func (g *Gate) Permissions() Permissions {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

func (g *Gate) CheckCameraAccess(ctx context.Context) PermissionState {
	if g.camera == nil {
		return PermissionDenied
	}
	stream, err := g.camera.Acquire(ctx)
	if err != nil {
		g.logger.Info("camera access denied", zap.Error(err))
		return PermissionDenied
	}
	g.mu.Lock()
	if g.stream != nil {
		_ = g.stream.Close()
	}
	g.stream = stream
	g.mu.Unlock()
	return PermissionGranted
}

func (g *Gate) CheckLocationAccess(ctx context.Context) PermissionState {
	if g.location == nil {
		return PermissionDenied
	}
	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	if _, err := g.location.CurrentPosition(probeCtx); err != nil {
		g.logger.Info("location access denied", zap.Error(err))
		return PermissionDenied
	}
	return PermissionGranted
}

// Stream is the display-only camera stream, nil unless camera access was granted.
func (g *Gate) Stream() VideoStream {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stream
}

func (g *Gate) Release() {
	g.mu.Lock()
	stream := g.stream
	g.stream = nil
	g.mu.Unlock()
	if stream != nil {
		if err := stream.Close(); err != nil {
			g.logger.Warn("camera stream close error", zap.Error(err))
		}
	}
}
