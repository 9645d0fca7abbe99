package tour

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusStarting  Status = "starting"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Sample is a single geolocation fix. SpeedMps is nil when the device
// does not report an instantaneous speed.
type Sample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AccuracyM float64   `json:"accuracy_m"`
	SpeedMps  *float64  `json:"speed_mps,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s Sample) Position() Position {
	return Position{Lat: s.Lat, Lng: s.Lng, Timestamp: s.Timestamp}
}

// Identity names who is touring which mountain.
type Identity struct {
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	MountainID   string `json:"mountain_id"`
	MountainName string `json:"mountain_name"`
}

type Session struct {
	ID string `json:"id,omitempty"`
	Identity
	Status            Status     `json:"status"`
	DistanceMeters    float64    `json:"distance_m"`
	DurationSeconds   int64      `json:"duration_sec"`
	CurrentSpeedKmh   float64    `json:"current_speed_kmh"`
	LastKnownPosition *Position  `json:"last_position,omitempty"`
	StartedAt         time.Time  `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// NewSession is the payload for a remote create.
type NewSession struct {
	Identity
	StartedAt time.Time
}

// Patch is a partial remote update; nil fields are left untouched.
type Patch struct {
	Status          *Status    `json:"status,omitempty"`
	DistanceMeters  *float64   `json:"distance_m,omitempty"`
	DurationSeconds *int64     `json:"duration_sec,omitempty"`
	LastPosition    *Position  `json:"last_position,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

type OrderBy string

const (
	OrderByDistance  OrderBy = "distance"
	OrderByStartTime OrderBy = "start_time"
)

// Query filters a store listing. Results are always ordered descending.
type Query struct {
	Status  Status
	OrderBy OrderBy
	Limit   int
}
