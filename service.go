package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"colstats_worker/colstats"
)

type worker struct {
	store   store
	log     *zap.Logger
	metrics *metrics
	opts    []colstats.Option
}

func (w *worker) processAnalysis(ctx context.Context, id int64) (*colstats.Table, error) {
	table, err := w.run(ctx, id)
	result := "ok"
	if err != nil {
		result = "error"
	}
	w.metrics.AnalysesTotal.WithLabelValues(result).Inc()
	return table, err
}

func (w *worker) run(ctx context.Context, id int64) (*colstats.Table, error) {
	exists, err := w.store.AnalysisExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup analysis %d failed: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("analysis id %d not found", id)
	}
	names, columns, err := w.store.FetchMatrix(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch matrix failed: %w", err)
	}

	table, elapsed, peak, err := measurePeakResidentMemory(func() (*colstats.Table, float64, error) {
		start := time.Now()
		t, err := colstats.Compute(columns, names, w.opts...)
		return t, time.Since(start).Seconds(), err
	})
	if err != nil {
		return nil, fmt.Errorf("analysis %d: %w", id, err)
	}
	if err := w.store.InsertColumnStats(ctx, id, table, elapsed, peak); err != nil {
		return nil, fmt.Errorf("insert column_stats failed: %w", err)
	}

	w.metrics.ComputeDuration.Observe(elapsed)
	w.metrics.ColumnsTotal.Add(float64(len(table.Rows)))
	w.metrics.PeakMemory.Set(peak)
	w.log.Info("processed analysis",
		zap.Int64("analysis_id", id),
		zap.Int("columns", len(table.Rows)),
		zap.Float64("duration_seconds", elapsed),
		zap.Float64("peak_rss_bytes", peak),
	)
	return table, nil
}

// runService pops jobs from the queue until ctx is cancelled, reconnecting
// whenever the connection drops.
func (w *worker) runService(ctx context.Context, target redisTarget, wc WorkerConfig) {
	queue := "queue:" + wc.Queue
	log := w.log.With(zap.String("queue", queue))

	for ctx.Err() == nil {
		conn, err := dialRedis(ctx, target)
		if err != nil {
			log.Warn("redis connect failed; retrying in 2s", zap.Error(err))
			sleepCtx(ctx, 2*time.Second)
			continue
		}
		log.Info("listening for jobs")
		w.consume(ctx, conn, queue, wc.JobClasses)
		conn.Close()
		sleepCtx(ctx, time.Second)
	}
	log.Info("service stopped")
}

func (w *worker) consume(ctx context.Context, conn *redisConn, queue string, classes []string) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for ctx.Err() == nil {
		_, payload, err := conn.brpop(queue, 5)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, errRedisEOF) {
				w.log.Warn("redis read error", zap.Error(err))
			}
			return
		}
		if payload == "" {
			continue // timeout
		}
		w.handlePayload(ctx, payload, classes)
	}
}

func (w *worker) handlePayload(ctx context.Context, payload string, classes []string) {
	job, id, err := decodeJob(payload, classes)
	if err != nil {
		w.metrics.JobsSkipped.Inc()
		if errors.Is(err, errSkipJob) {
			w.log.Debug("skipping job", zap.String("class", job.Class))
		} else {
			w.log.Warn("invalid job", zap.Error(err), zap.String("payload", payload))
		}
		return
	}
	if _, err := w.processAnalysis(ctx, id); err != nil {
		w.log.Error("process error", zap.Int64("analysis_id", id), zap.String("jid", job.JID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
