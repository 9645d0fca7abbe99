package tour

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricSamplesAccepted = "tour_samples_accepted_total"
	MetricDistanceMeters  = "tour_distance_meters_total"
	MetricSyncFailures    = "tour_sync_failures_total"
	MetricSessions        = "tour_sessions_total"
)

// Sync operations used as the "op" label.
const (
	SyncProgress = "progress"
	SyncStatus   = "status"
	SyncEnd      = "end"
	SyncCreate   = "create"
)

// Metrics holds controller counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	samples      prometheus.Counter
	distance     prometheus.Counter
	syncFailures *prometheus.CounterVec
	sessions     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSamplesAccepted,
			Help: "Geolocation samples accepted by active tour sessions",
		}),
		distance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricDistanceMeters,
			Help: "Great-circle distance accumulated by tour sessions in meters",
		}),
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSyncFailures,
			Help: "Remote tour store writes that failed, by operation",
		}, []string{"op"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSessions,
			Help: "Tour sessions reaching a lifecycle status",
		}, []string{"status"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.samples, m.distance, m.syncFailures, m.sessions}
}

func (m *Metrics) sampleAccepted(deltaM float64) {
	if m == nil {
		return
	}
	m.samples.Inc()
	if deltaM > 0 {
		m.distance.Add(deltaM)
	}
}

func (m *Metrics) syncFailed(op string) {
	if m == nil {
		return
	}
	m.syncFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) session(status Status) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(string(status)).Inc()
}
