// Package metrics exports worker cache outcomes as Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/johnqh/di-web/internal/services/worker/domain"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_worker_cache_hits_total",
			Help: "Total requests served from a cache bucket",
		},
		[]string{"class"},
	)

	cacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_worker_cache_misses_total",
			Help: "Total requests that found no fresh cached entry",
		},
		[]string{"class"},
	)

	networkFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_worker_network_fetches_total",
			Help: "Total upstream fetches performed by caching strategies",
		},
		[]string{"class"},
	)

	evictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_worker_evictions_total",
			Help: "Total entries evicted while trimming bounded buckets",
		},
		[]string{"class"},
	)

	replaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_worker_replays_total",
			Help: "Total pending mutation replay attempts by outcome",
		},
		[]string{"outcome"},
	)

	registrationStatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "di_web_registration_states_total",
			Help: "Total registration controller state emissions by state",
		},
		[]string{"state"},
	)
)

// RecordRegistrationState counts one controller state emission.
func RecordRegistrationState(state string) {
	registrationStatesTotal.WithLabelValues(state).Inc()
}

// Observer records worker cache outcomes on the process-wide registry.
type Observer struct{}

// NewObserver returns a metrics-backed cache observer.
func NewObserver() Observer {
	return Observer{}
}

func (Observer) CacheHit(class domain.NamespaceClass) {
	cacheHitsTotal.WithLabelValues(string(class)).Inc()
}

func (Observer) CacheMiss(class domain.NamespaceClass) {
	cacheMissesTotal.WithLabelValues(string(class)).Inc()
}

func (Observer) NetworkFetch(class domain.NamespaceClass) {
	networkFetchesTotal.WithLabelValues(string(class)).Inc()
}

func (Observer) Eviction(class domain.NamespaceClass) {
	evictionsTotal.WithLabelValues(string(class)).Inc()
}

func (Observer) Replay(ok bool) {
	outcome := "replayed"
	if !ok {
		outcome = "failed"
	}
	replaysTotal.WithLabelValues(outcome).Inc()
}

var _ domain.Observer = Observer{}
