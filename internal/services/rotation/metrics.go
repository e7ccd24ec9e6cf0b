package rotation

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts rotation outcomes.
type Metrics struct {
	Rotations prometheus.Counter
	Failures  prometheus.Counter
	Removed   prometheus.Counter
}

// NewMetrics creates the rotation counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signet",
			Name:      "signed_prekey_rotations_total",
			Help:      "Signed pre-keys generated and made active by rotation.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signet",
			Name:      "signed_prekey_rotation_failures_total",
			Help:      "Rotation attempts that returned an error.",
		}),
		Removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signet",
			Name:      "signed_prekeys_removed_total",
			Help:      "Archived signed pre-keys removed after rotation.",
		}),
	}
	reg.MustRegister(m.Rotations, m.Failures, m.Removed)
	return m
}
