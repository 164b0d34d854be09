package manifest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generations counts Generate calls by outcome (created, skipped, failed).
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appcache_manifest_generations_total",
			Help: "Total number of manifest generation attempts by result",
		},
		[]string{"result"},
	)

	// GenerationDuration tracks time spent scanning HTML and writing manifests.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appcache_manifest_generation_duration_seconds",
			Help:    "Duration of manifest generation including directory scans",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// ManifestEntries records how many entries each created manifest lists.
	ManifestEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appcache_manifest_entries",
			Help:    "Number of CACHE entries written per created manifest",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Invalidations counts Invalidate calls by outcome (invalidated, missing, failed).
	Invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appcache_manifest_invalidations_total",
			Help: "Total number of manifest invalidations by result",
		},
		[]string{"result"},
	)
)
