package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/payroll/internal/payroll/config"
	"github.com/gartstein/payroll/internal/payroll/controller"
	"github.com/gartstein/payroll/internal/payroll/db"
	"github.com/gartstein/payroll/internal/payroll/events"
	"github.com/gartstein/payroll/internal/payroll/export"
	"github.com/gartstein/payroll/internal/payroll/filestore"
	"github.com/gartstein/payroll/internal/payroll/handlers"
	"github.com/gartstein/payroll/internal/payroll/report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// startupRetry bounds how long main waits for the database and brokers.
const startupRetry = 30 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	gateway, closeGateway, err := initGateway(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer closeGateway()

	producer, closeProducer := initProducer(cfg, logger)
	defer closeProducer()

	payrollSvc := controller.NewPayrollService(gateway, producer, logger)

	scheduler, err := initScheduler(cfg, payrollSvc, logger)
	if err != nil {
		logger.Fatal("failed to initialize report scheduler", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	if err := server.RegisterHTTPGateway(handlers.NewPayrollHandler(payrollSvc, logger)); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	waitForShutdown(server, errCh, logger)
}

// initLogger builds a production logger at the configured level.
func initLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, buildErr := zcfg.Build()
	if buildErr != nil {
		logger, _ = zap.NewProduction()
	}
	if err != nil {
		logger.Warn("unknown log level, using info", zap.String("level", level))
	}
	return logger
}

// initGateway opens the configured storage backend.
func initGateway(cfg *config.Config, logger *zap.Logger) (controller.Gateway, func(), error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		repo, err := db.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using sqlite storage", zap.String("path", cfg.SQLitePath))
		return repo, closeRepository(repo, logger), nil

	case config.StoragePostgres:
		dbConf := &db.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}
		var repo *db.Repository
		err := backoff.Retry(func() error {
			var err error
			repo, err = db.NewRepository(dbConf)
			if err != nil {
				logger.Warn("database not ready, retrying", zap.Error(err))
			}
			return err
		}, startupBackoff())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using postgres storage", zap.String("host", cfg.DBHost))
		return repo, closeRepository(repo, logger), nil

	default:
		logger.Info("Using file storage", zap.String("path", cfg.DataFile))
		return filestore.New(cfg.DataFile, logger), func() {}, nil
	}
}

func closeRepository(repo *db.Repository, logger *zap.Logger) func() {
	return func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}
}

// initProducer connects to Kafka, falling back to a no-op producer when no
// brokers are configured or they stay unreachable.
func initProducer(cfg *config.Config, logger *zap.Logger) (controller.EventProducer, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, events disabled")
		return events.NopProducer{}, func() {}
	}

	var producer *events.Producer
	err := backoff.Retry(func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	}, startupBackoff())
	if err != nil {
		logger.Error("failed to initialize Kafka producer, events disabled", zap.Error(err))
		return events.NopProducer{}, func() {}
	}
	return producer, producer.Close
}

// initScheduler wires scheduled report publishing, or returns nil when it
// is not configured.
func initScheduler(cfg *config.Config, source export.ReportSource, logger *zap.Logger) (*export.Scheduler, error) {
	if !cfg.ExportEnabled() {
		return nil, nil
	}

	formats := make([]report.Format, 0, len(cfg.ExportFormats))
	for _, name := range cfg.ExportFormats {
		f, err := report.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}

	store, err := export.NewS3Store(context.Background(), export.S3Config{
		Bucket:    cfg.ExportBucket,
		Region:    cfg.ExportRegion,
		Endpoint:  cfg.ExportEndpoint,
		AccessKey: cfg.ExportAccessKey,
		SecretKey: cfg.ExportSecretKey,
	})
	if err != nil {
		return nil, err
	}

	publisher := export.NewPublisher(source, store, cfg.ExportPrefix, logger)
	return export.NewScheduler(cfg.ExportSchedule, publisher, formats, logger)
}

func startupBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupRetry
	return b
}

// waitForShutdown blocks until an interrupt, SIGTERM or a server failure,
// then shuts down servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
}
