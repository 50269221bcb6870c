package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pivik/internal/amqp"
	"pivik/internal/backend"
	"pivik/internal/budget"
	"pivik/internal/cli"
	"pivik/internal/config"
	plog "pivik/internal/log"
	"pivik/internal/services"
	"pivik/internal/sheets"
	gsheet "pivik/internal/sheets/google"
	mem "pivik/internal/sheets/memory"
	"pivik/internal/worker"
)

type mirror interface {
	sheets.LedgerWriter
	sheets.SummaryWriter
}

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, plog.ComponentWorker)

	logger.Info("Starting pivik-worker")

	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Worker is using the memory backend; it will not see records written by the server")
	}
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	st := result.Store

	out, err := newMirror(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	dashboard := services.NewDashboardService(st, budget.Tracker{
		Project:           cfg.BudgetProject,
		Limit:             cfg.BudgetLimit,
		LowFundsThreshold: &cfg.BudgetLowFunds,
	})
	processor := worker.NewSummaryProcessor(dashboard, out, worker.SummaryProcessorConfig{
		Interval: cfg.SummaryInterval,
	})

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("Ledger mirroring disabled - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping summary processor", "error", err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start summary processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if amqpClient != nil {
		mirrorWorker := worker.NewMirrorWorker(st, out)
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerEvents(gctx, mirrorWorker.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Ledger consumption failed", "error", err)
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = processor.Stop(stopCtx)
		cancel()
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)

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
	logger.Info("Worker stopped")
}

func newMirror(cfg *config.Config, logger *plog.Logger) (mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		LedgerSheet:   cfg.GoogleSheetName,
		SummarySheet:  cfg.GoogleSummarySheetName,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
