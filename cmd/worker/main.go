package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/bootstrap"
	"github.com/kirillkom/plagiarism-analysis/internal/config"
	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
)

func main() {
	cfg := config.Load()
	if cfg.DispatchMode != bootstrap.DispatchNATS {
		log.Fatalf("worker requires DISPATCH_MODE=%s, got %q", bootstrap.DispatchNATS, cfg.DispatchMode)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	slog.SetDefault(app.Logger)

	app.Pool.Start(context.WithoutCancel(ctx))

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("worker_metrics_server_error", "error", err)
		}
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "workers", cfg.AnalysisWorkers)
	// Submit waits for backlog space, so a busy pool slows consumption
	// instead of dropping deliveries.
	err = app.Queue.SubscribeAnalysisTasks(ctx, func(handlerCtx context.Context, task domain.AnalysisTask) error {
		return app.Pool.Submit(handlerCtx, task)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("worker_subscribe_error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := app.Pool.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("worker_pool_shutdown_error", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
