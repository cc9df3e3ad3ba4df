package query

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	fetches       *prometheus.CounterVec
	hits          *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	errors        *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "famfin",
			Subsystem: "query",
			Name:      name,
			Help:      help,
		}, []string{"key"})
	}
	m := &metrics{
		fetches:       counter("fetches_total", "Fetch functions called, one per network call."),
		hits:          counter("cache_hits_total", "Reads answered from a fresh cache entry."),
		invalidations: counter("invalidations_total", "Keys marked stale."),
		errors:        counter("errors_total", "Fetches that failed."),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.hits, m.invalidations, m.errors)
	}
	return m
}
