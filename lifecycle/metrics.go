package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request results.
const (
	resultHit         = "hit"
	resultCreated     = "created"
	resultIneligible  = "ineligible"
	resultNoLocation  = "no_location"
	resultFailed      = "failed"
	resultCancelled   = "cancelled"
	resultClosed      = "closed"
	resultInvalidated = "invalidated"
	resultInvalid     = "invalid"
)

// Disposal modes.
const (
	disposeReleased  = "released"
	disposeStale     = "stale"
	disposeImmediate = "immediate"
	disposeDeferred  = "deferred"
	disposeSolution  = "solution_closed"
	disposeShutdown  = "shutdown"
	disposeAbandoned = "abandoned"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	requests         *prometheus.CounterVec
	openFailures     *prometheus.CounterVec
	corruptRecovered prometheus.Counter
	liveBackends     prometheus.Gauge
	disposals        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: result (hit, created, ineligible, no_location, failed, cancelled, closed, invalidated, invalid)
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solstore",
			Subsystem: "lifecycle",
			Name:      "requests_total",
			Help:      "Storage requests by result",
		}, []string{"result"}),
		// Labels: kind (open_failed, access_denied, corrupt)
		openFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solstore",
			Subsystem: "lifecycle",
			Name:      "open_failures_total",
			Help:      "Store open attempts that failed, by kind",
		}, []string{"kind"}),
		corruptRecovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "solstore",
			Subsystem: "lifecycle",
			Name:      "corrupt_recovered_total",
			Help:      "Corrupt stores deleted and successfully recreated",
		}),
		liveBackends: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "solstore",
			Subsystem: "lifecycle",
			Name:      "live_backends",
			Help:      "Backends currently open",
		}),
		// Labels: mode (released, stale, immediate, deferred, solution_closed, shutdown, abandoned)
		disposals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solstore",
			Subsystem: "lifecycle",
			Name:      "disposals_total",
			Help:      "Backends closed, by trigger",
		}, []string{"mode"}),
	}
}
