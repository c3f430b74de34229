// Package metrics provides Prometheus metrics for the publisher and the HTTP
// endpoint serving them in watch mode.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wxdraft/internal/logger"
)

const (
	namespace       = "wxdraft"
	shutdownTimeout = 5 * time.Second
)

// Article results.
const (
	ResultPublished    = "published"
	ResultFailed       = "failed"
	ResultMissingImage = "missing_image"
)

var (
	// ArticlesTotal counts processed articles by result.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "articles",
			Name:      "total",
			Help:      "Total number of articles handled by result",
		},
		[]string{"result"},
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "articles",
			Name:      "publish_duration_seconds",
			Help:      "Time from loading an article to its draft being created",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	PendingArticles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "articles",
			Name:      "pending",
			Help:      "Articles found in the watched directory by the last scan",
		},
	)

	// RunsTotal counts batch runs (one per scan in watch mode).
	RunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of batch runs",
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time the last batch run finished",
		},
	)
)

// ObserveArticle records one article outcome.
func ObserveArticle(result string, duration time.Duration) {
	ArticlesTotal.WithLabelValues(result).Inc()

	if result == ResultPublished {
		PublishDuration.Observe(duration.Seconds())
	}
}

// ObserveRun records a finished batch run.
func ObserveRun(pending int, finished time.Time) {
	RunsTotal.Inc()
	PendingArticles.Set(float64(pending))
	LastRunTimestamp.Set(float64(finished.Unix()))
}

// NewRouter serves /metrics and /healthz.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve runs the metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *logger.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Metrics listening on %s", addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics shutdown: %w", err)
	}

	return nil
}
