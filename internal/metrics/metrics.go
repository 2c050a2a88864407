package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_search_pages_total",
			Help: "Search result pages processed during discovery, by outcome",
		},
		[]string{"outcome"}, // ok | empty | failed
	)

	BlockDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_block_detections_total",
			Help: "Anti-automation blocks detected on rendered pages",
		},
		[]string{"source"},
	)

	ProfilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_profiles_processed_total",
			Help: "Profile pages processed by the batch stage, by outcome",
		},
		[]string{"outcome"}, // extracted | empty | fetch_error | extract_error
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prospector_render_duration_seconds",
			Help:    "Duration of page renders in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"}, // discovery | batch
	)

	SinkRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospector_sink_rows_total",
			Help: "Rows offered to the durable sink, by result",
		},
		[]string{"result"}, // written | duplicate
	)
)

// ObserveRender records the duration of a single page render for the given
// pipeline stage.
func ObserveRender(stage string, d time.Duration) {
	RenderDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordAppend updates the sink counters after one append.
func RecordAppend(written, duplicates int) {
	SinkRowsTotal.WithLabelValues("written").Add(float64(written))
	SinkRowsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified address and exposes /metrics.
func Start(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
