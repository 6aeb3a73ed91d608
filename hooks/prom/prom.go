// Package promhooks exports cache events as Prometheus counters.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/rowcache"
)

type Hooks struct {
	hits              *prometheus.CounterVec
	negativeHits      *prometheus.CounterVec
	misses            *prometheus.CounterVec
	handlerMissing    *prometheus.CounterVec
	incrementRejected *prometheus.CounterVec
	selfHeals         *prometheus.CounterVec
}

var _ rowcache.Hooks = (*Hooks)(nil)

// New registers the counters on reg under namespace (e.g. "app" gives
// app_rowcache_hits_total). It panics if they are already registered.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	f := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rowcache",
			Name:      name,
			Help:      help,
		}, labels)
	}
	return &Hooks{
		hits:              counter("hits_total", "Records served from the cache.", "connection", "table"),
		negativeHits:      counter("negative_hits_total", "Single fetches answered by a negative entry.", "connection", "table"),
		misses:            counter("misses_total", "Ids read from the record store after a cache miss.", "connection", "table"),
		handlerMissing:    counter("handler_missing_total", "Calls on a connection without a cache backend.", "connection"),
		incrementRejected: counter("increment_rejected_total", "Increments refused because the entry was not cached.", "connection", "table"),
		selfHeals:         counter("self_heals_total", "Unreadable entries dropped by a backend.", "reason"),
	}
}

func (h *Hooks) Hit(connection, table string, n int) {
	h.hits.WithLabelValues(connection, table).Add(float64(n))
}

func (h *Hooks) NegativeHit(connection, table string) {
	h.negativeHits.WithLabelValues(connection, table).Inc()
}

func (h *Hooks) Miss(connection, table string, n int) {
	h.misses.WithLabelValues(connection, table).Add(float64(n))
}

func (h *Hooks) HandlerMissing(connection string) {
	h.handlerMissing.WithLabelValues(connection).Inc()
}

func (h *Hooks) IncrementRejected(connection, table string) {
	h.incrementRejected.WithLabelValues(connection, table).Inc()
}

// SelfHeal counts by reason only; keys are unbounded.
func (h *Hooks) SelfHeal(_, reason string) {
	h.selfHeals.WithLabelValues(reason).Inc()
}
