package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/hybrid-retrieval-router/internal/bootstrap"
	"github.com/kirillkom/hybrid-retrieval-router/internal/config"
	"github.com/kirillkom/hybrid-retrieval-router/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, "worker", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.Metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSProfiledSubject)
		return app.Queue.SubscribeDocumentProfiled(gctx, func(handlerCtx context.Context, documentID string) error {
			routeCtx, cancel := context.WithTimeout(handlerCtx, cfg.DocumentRouteTimeout)
			defer cancel()

			start := time.Now()
			app.Metrics.StartDocument()
			err := app.DocumentRouter.RouteByID(routeCtx, documentID)
			app.Metrics.FinishDocument(time.Since(start), err)
			return err
		})
	})
	g.Go(func() error {
		logger.Info("plans_serving", "subject", cfg.NATSPlanSubject)
		return app.Queue.ServePlans(gctx, app.Planner)
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker_stopped", "error", err)
		os.Exit(1)
	}
}
