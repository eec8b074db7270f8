package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	var analysisID int64
	var service bool
	flag.Int64Var(&analysisID, "analysis-id", 0, "ID of analyses row to summarize (omit to run service)")
	flag.BoolVar(&service, "service", false, "Run as background service listening to Sidekiq queue")
	flag.Parse()

	if analysisID == 0 && flag.NArg() > 0 {
		if _, err := fmt.Sscan(flag.Arg(0), &analysisID); err != nil {
			fmt.Fprintln(os.Stderr, "missing --analysis-id <id> argument or --service")
			os.Exit(2)
		}
	}

	if err := run(analysisID, service || analysisID == 0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the worker together and either serves the queue or processes a
// single analysis. Deferred cleanup always runs before main exits.
func run(analysisID int64, service bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger config error: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.StatsOptions()
	if err != nil {
		return fmt.Errorf("stats config error: %w", err)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return fmt.Errorf("database config error: %w", err)
	}
	var target redisTarget
	if service {
		if target, err = parseRedisURL(cfg.Redis.URL); err != nil {
			return fmt.Errorf("redis config error: %w", err)
		}
	}
	st, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	w := &worker{store: st, log: log, metrics: newMetrics(), opts: opts}
	if cfg.MetricsAddr != "" {
		go w.metrics.serve(ctx, cfg.MetricsAddr, log)
	}

	if service {
		w.runService(ctx, target, cfg.Worker)
		return nil
	}

	table, err := w.processAnalysis(ctx, analysisID)
	if err != nil {
		log.Error("analysis failed", zap.Int64("analysis_id", analysisID), zap.Error(err))
		return err
	}
	if err := table.WriteText(os.Stdout); err != nil {
		return fmt.Errorf("write table failed: %w", err)
	}
	return nil
}
