package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logstats/internal/aggregate"
	"github.com/tinytelemetry/logstats/internal/httpserver"
	"github.com/tinytelemetry/logstats/internal/logsource"
	"github.com/tinytelemetry/logstats/internal/metrics"
	"github.com/tinytelemetry/logstats/internal/pipeline"
	"github.com/tinytelemetry/logstats/internal/report"
)

// runStats aggregates in until it ends, SIGINT/SIGTERM arrives, or parent is
// cancelled. In every case the final report is written to out before it returns.
func runStats(parent context.Context, cfg appConfig, in io.Reader, out io.Writer, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Interrupts are wired before the first read.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	finished := make(chan struct{})
	defer close(finished)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("signal received, writing final report", zap.Stringer("signal", sig))
			cancel()
		case <-finished:
			return
		}

		select {
		case <-sigCh:
			logger.Warn("second signal, forcing exit")
			os.Exit(0)
		case <-finished:
		}
	}()

	m := metrics.New()
	tracker := aggregate.NewTracker()

	reporter := report.NewReporter(out)
	reporter.OnEmit = m.RecordReport

	src := logsource.NewReaderSource(ctx, in, logger, logsource.StdinConfig{MaxLineSize: cfg.MaxLineSize})
	controller := pipeline.New(src, reporter,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
		pipeline.WithTracker(tracker),
	)

	var apiServer *httpserver.Server
	if cfg.APIEnabled {
		apiServer = httpserver.NewServer(cfg.APIAddr, tracker, m.Registry(), func() string {
			return controller.State().String()
		})
		if err := apiServer.Start(); err != nil {
			src.Stop()
			return fmt.Errorf("failed to start status API: %w", err)
		}
		logger.Info("status API listening", zap.String("addr", apiServer.Addr()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Releases the API watcher once the final report is out.
		defer cancel()
		snap, err := controller.Run(gctx)
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		logger.Info("pipeline stopped",
			zap.Int64("accepted", snap.Accepted),
			zap.Int64("total_bytes", snap.TotalBytes))
		return nil
	})

	if apiServer != nil {
		g.Go(func() error {
			<-gctx.Done()
			return apiServer.Stop()
		})
	}

	return g.Wait()
}
