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

	httpadapter "github.com/kirillkom/plagiarism-analysis/internal/adapters/http"
	"github.com/kirillkom/plagiarism-analysis/internal/bootstrap"
	"github.com/kirillkom/plagiarism-analysis/internal/config"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	slog.SetDefault(app.Logger)

	// In local mode analyses run in this process; they must outlive the
	// signal context so Shutdown can drain them.
	if cfg.DispatchMode != bootstrap.DispatchNATS {
		app.Pool.Start(context.WithoutCancel(ctx))
	}

	router := httpadapter.NewRouter(cfg, app.StartUC, app.ReportsUC, app.ReportsUC).
		WithMetrics(app.Metrics).
		WithLogger(app.Logger).
		Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "addr", server.Addr, "dispatch_mode", cfg.DispatchMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
	if cfg.DispatchMode != bootstrap.DispatchNATS {
		if err := app.Pool.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("worker_pool_shutdown_error", "error", err)
		}
	}
}
