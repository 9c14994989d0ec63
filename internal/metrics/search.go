package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and recommendation metrics.
var (
	// CacheTotal counts lookups per named cache. result is "hit" or "miss".
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drillscout",
			Name:      "cache_total",
			Help:      "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drillscout",
			Name:      "cache_evictions_total",
			Help:      "Expired entries removed by cleanup passes",
		},
		[]string{"cache"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drillscout",
			Name:      "searches_total",
			Help:      "Completed searches by the strategy that produced the result",
		},
		[]string{"search_type"},
	)

	SearchDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drillscout",
			Name:      "search_degradations_total",
			Help:      "Searches that fell back to listing, by reason",
		},
		[]string{"reason"},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "drillscout",
			Name:      "recommendations_total",
			Help:      "Recommendation evaluations by outcome",
		},
		[]string{"outcome"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search and recommendation metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDegradationsTotal)
	prometheus.MustRegister(RecommendationsTotal)
	searchMetricsRegistered = true
}
