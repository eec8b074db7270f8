package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type metrics struct {
	registry *prometheus.Registry

	AnalysesTotal   *prometheus.CounterVec
	ComputeDuration prometheus.Histogram
	ColumnsTotal    prometheus.Counter
	PeakMemory      prometheus.Gauge
	JobsSkipped     prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "colstats_analyses_total",
				Help: "Analyses processed, by result",
			},
			[]string{"result"},
		),
		ComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "colstats_compute_duration_seconds",
			Help:    "Time spent computing column statistics for one analysis",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		ColumnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "colstats_columns_total",
			Help: "Columns summarized",
		}),
		PeakMemory: factory.NewGauge(prometheus.GaugeOpts{
			Name: "colstats_last_peak_rss_bytes",
			Help: "Peak resident memory observed during the last analysis",
		}),
		JobsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "colstats_jobs_skipped_total",
			Help: "Queue jobs that were not processed",
		}),
	}
}

// serve exposes /metrics on addr until ctx is cancelled.
func (m *metrics) serve(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", zap.Error(err))
	}
}
