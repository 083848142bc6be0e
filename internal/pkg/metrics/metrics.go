package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-wide interpretation pipeline metrics. Counters are in-memory only;
// aggregation across restarts happens at the scrape backend.
var (
	GeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunar_interpretation_generated_total",
		Help: "Interpretations resolved, labeled by the source that satisfied the request.",
	}, []string{"source"})

	CacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lunar_interpretation_cache_hit_total",
		Help: "Interpretation requests satisfied by the persistent cache.",
	})

	FallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lunar_interpretation_fallback_total",
		Help: "Interpretation requests that fell past live generation to a fallback source.",
	})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lunar_interpretation_duration_seconds",
		Help:    "Wall time of one interpretation resolution, cache hits included.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	ActiveGenerations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lunar_active_generations",
		Help: "Interpretation resolutions currently in flight.",
	})
)

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
