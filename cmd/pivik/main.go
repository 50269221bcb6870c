package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pivik/internal/amqp"
	"pivik/internal/backend"
	"pivik/internal/budget"
	"pivik/internal/cli"
	"pivik/internal/config"
	"pivik/internal/documents"
	"pivik/internal/extract"
	apphttp "pivik/internal/http"
	plog "pivik/internal/log"
	"pivik/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, plog.ComponentApp)

	ctx := context.Background()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	st := result.Store

	if cfg.SeedSampleData {
		seeded, err := services.SeedSampleData(ctx, st)
		if err != nil {
			logger.Error("Failed to seed sample data", "error", err)
			os.Exit(1)
		}
		if seeded {
			logger.Info("Seeded sample invoices")
		}
	}

	docs, err := newDocumentStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize document storage", "error", err, "backend", cfg.DocumentBackend)
		os.Exit(1)
	}

	var extractor extract.Extractor = extract.Unavailable{}
	if cfg.OpenAIAPIKey != "" {
		extractor = extract.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		logger.Info("AI extraction enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Info("AI extraction disabled - no OPENAI_API_KEY provided")
	}

	// A nil *amqp.Client must not reach the services as a non-nil interface.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		events = amqpClient
		logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	invoices := services.NewInvoiceService(st,
		services.WithDocuments(docs),
		services.WithExtractor(extractor),
		services.WithEvents(events))
	earnings := services.NewEarningService(st, events)
	dashboard := services.NewDashboardService(st, budget.Tracker{
		Project:           cfg.BudgetProject,
		Limit:             cfg.BudgetLimit,
		LowFundsThreshold: &cfg.BudgetLowFunds,
	})

	var ready func(context.Context) error
	if p, ok := st.(interface{ Ping(context.Context) error }); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Invoices:       invoices,
		Earnings:       earnings,
		Dashboard:      dashboard,
		Ready:          ready,
		Logger:         logger.WithComponent(plog.ComponentHTTP),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}
	})

	g, _ := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("Starting pivik server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"documents", cfg.DocumentBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.Info("Server stopped gracefully")
}

func newDocumentStore(ctx context.Context, cfg *config.Config) (documents.Store, error) {
	if cfg.DocumentBackend != "minio" {
		return documents.NewLocalStore(cfg.UploadDir)
	}
	ms, err := documents.NewMinioStore(documents.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ms.EnsureBucket(ensureCtx); err != nil {
		return nil, err
	}
	return ms, nil
}
