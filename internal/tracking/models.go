package tracking

import (
	"time"

	"backend-tourguide/internal/tour"
)

// SampleRequest is one geolocation fix as reported by the device.
type SampleRequest struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AccuracyM float64   `json:"accuracy_m"`
	SpeedMps  *float64  `json:"speed_mps"`
	Timestamp time.Time `json:"timestamp"`
}

func (r SampleRequest) Valid() bool {
	return r.Lat >= -90 && r.Lat <= 90 && r.Lng >= -180 && r.Lng <= 180
}

func (r SampleRequest) Sample() tour.Sample {
	return tour.Sample{
		Lat:       r.Lat,
		Lng:       r.Lng,
		AccuracyM: r.AccuracyM,
		SpeedMps:  r.SpeedMps,
		Timestamp: r.Timestamp,
	}
}

// OpenRequest carries the device's answers to the camera and location
// prompts of a tour page load.
type OpenRequest struct {
	Camera        tour.PermissionState `json:"camera"`
	CameraError   string               `json:"camera_error"`
	Location      *SampleRequest       `json:"location"`
	LocationError string               `json:"location_error"`
}

type ErrorRequest struct {
	Message string `json:"message"`
}

type MountainRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// View is what the tour page renders for an attempt.
type View struct {
	AttemptID   string           `json:"attempt_id"`
	Mountain    MountainRef      `json:"mountain"`
	Permissions tour.Permissions `json:"permissions"`
	Tour        tour.Session     `json:"tour"`
}
