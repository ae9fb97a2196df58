package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/plagiarism-analysis/internal/config"
	"github.com/kirillkom/plagiarism-analysis/internal/core/domain"
	"github.com/kirillkom/plagiarism-analysis/internal/core/ports"
	"github.com/kirillkom/plagiarism-analysis/internal/core/usecase"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/archive"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/archive/localfs"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/archive/objectstore"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/filestorage"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/queue/nats"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/repository/memory"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/resilience"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/textanalysis"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/wordcloud"
	"github.com/kirillkom/plagiarism-analysis/internal/infrastructure/workerpool"
	"github.com/kirillkom/plagiarism-analysis/internal/observability/logging"
	"github.com/kirillkom/plagiarism-analysis/internal/observability/metrics"
)

const (
	DispatchLocal = "local"
	DispatchNATS  = "nats"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Repo      ports.ReportRepository
	StartUC   *usecase.StartAnalysisUseCase
	ExecuteUC *usecase.ExecuteAnalysisUseCase
	ReportsUC *usecase.ReportQueryUseCase

	// Pool executes analyses in this process. Callers start it; in local
	// dispatch mode it is also the dispatcher behind StartUC.
	Pool *workerpool.Pool
	// Queue is set in nats dispatch mode.
	Queue *nats.Queue

	closeFns []func()
}

// New wires the service for the named process ("api" or "worker"). On error
// everything opened so far is closed again.
func New(ctx context.Context, cfg config.Config, service string) (_ *App, err error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewHTTPServerMetrics(service),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	repo, err := app.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	app.Repo = repo

	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage := filestorage.New(cfg.FileStorageURL, filestorage.Options{
		Timeout:         time.Duration(cfg.FileStorageTimeoutSeconds) * time.Second,
		MaxContentBytes: int64(cfg.FileStorageMaxContentMB) << 20,
		Executor: resilience.NewExecutor(
			resilience.FileStoragePolicy(cfg.FileStorageRetryAttempts, cfg.FileStorageBreakerEnabled),
		),
	})

	detector := usecase.NewPlagiarismDetector(storage, logger)
	app.ExecuteUC = usecase.NewExecuteAnalysisUseCase(
		repo,
		storage,
		textanalysis.NewContentDecoder(),
		textanalysis.NewFrequencyExtractor(domain.MaxWordFrequencyEntries, 0),
		detector,
		archiver,
		logger,
	)
	app.ReportsUC = usecase.NewReportQueryUseCase(
		repo,
		wordcloud.NewQuickChart(cfg.WordCloudBaseURL, cfg.WordCloudWidth, cfg.WordCloudHeight),
	)

	app.Pool = workerpool.New(app.ExecuteUC, workerpool.Options{
		Workers:     cfg.AnalysisWorkers,
		Backlog:     cfg.AnalysisBacklog,
		TaskTimeout: time.Duration(cfg.AnalysisTimeoutSeconds) * time.Second,
		Logger:      logger,
		Observer:    metrics.NewAnalysisMetrics(service, app.Metrics.Registry()),
	})

	var dispatcher ports.TaskDispatcher
	switch cfg.DispatchMode {
	case DispatchLocal, "":
		dispatcher = app.Pool
	case DispatchNATS:
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.QueuePolicy()),
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init task queue: %w", err)
		}
		app.Queue = queue
		app.closeFns = append(app.closeFns, queue.Close)
		dispatcher = queue
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.DispatchMode)
	}
	app.StartUC = usecase.NewStartAnalysisUseCase(repo, dispatcher, logger)

	logger.Info("bootstrap_complete",
		"report_store", cfg.ReportStore,
		"archive_backend", cfg.ArchiveBackend,
		"archive_format", cfg.ArchiveFormat,
		"dispatch_mode", cfg.DispatchMode,
	)
	return app, nil
}

func (a *App) openRepository(ctx context.Context) (ports.ReportRepository, error) {
	switch a.Config.ReportStore {
	case "postgres", "":
		db, err := postgres.OpenDB(a.Config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = db.Close() })
		repo := postgres.NewReportRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	case "sqlite":
		repo, err := sqlite.Open(a.Config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closeFns = append(a.closeFns, func() { _ = repo.Close() })
		return repo, nil
	case "memory":
		return memory.NewReportRepository(), nil
	default:
		return nil, fmt.Errorf("unknown report store %q", a.Config.ReportStore)
	}
}

func newArchiver(ctx context.Context, cfg config.Config) (ports.ReportArchiver, error) {
	format, err := archive.ParseFormat(cfg.ArchiveFormat)
	if err != nil {
		return nil, err
	}

	switch cfg.ArchiveBackend {
	case "localfs", "":
		archiver, err := localfs.New(cfg.ArchivePath, format)
		if err != nil {
			return nil, fmt.Errorf("init report archive: %w", err)
		}
		return archiver, nil
	case "minio", "s3":
		archiver, err := objectstore.New(ctx, objectstore.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Prefix:    cfg.MinIOPrefix,
			UseSSL:    cfg.MinIOUseSSL,
			Format:    format,
		})
		if err != nil {
			return nil, fmt.Errorf("init report archive: %w", err)
		}
		return archiver, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.ArchiveBackend)
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
