package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	metricMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshlink_messages_total",
			Help: "Messages received, by kind.",
		},
		[]string{"kind"},
	)
	metricDecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshlink_decode_errors_total",
			Help: "Frames that failed to decode.",
		},
	)
	metricMeshesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshlink_meshes_rejected_total",
			Help: "Meshes rejected for malformed topology.",
		},
	)
	metricWaitTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshlink_wait_timeouts_total",
			Help: "Get and Screenshot requests that timed out.",
		},
	)
	metricRefineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshlink_refine_duration_seconds",
			Help:    "Time spent refining a single mesh.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricMessages,
		metricDecodeErrors,
		metricMeshesRejected,
		metricWaitTimeouts,
		metricRefineDuration,
	)
}

// ServeMetrics exposes the prometheus registry over HTTP. It blocks, so
// callers run it on its own goroutine.
func ServeMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics endpoint up", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", zap.Error(err))
	}
}
