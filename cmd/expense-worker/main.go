package main

import (
	"context"
	"errors"
	"os"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	mem "expensetracker/internal/sheets/memory"
	"expensetracker/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)
	logger.Info("Starting expense-worker")

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// The worker only reads; it must not announce changes of its own.
	backendCfg.AMQPURL = ""
	backendCfg.CacheSize = 0
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected: the worker exports its own seeded copy, not the server's records")
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewExportWorker(res.Store, res.Store, exporter, logger)

	// Catch up on anything changed while the worker was down.
	logger.Info("Performing startup export")
	if err := w.ExportAll(ctx); err != nil {
		logger.Error("Startup export incomplete", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.Consume(gctx, w.HandleChangeMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic exports", "interval", cfg.ExportInterval)
	}

	g.Go(func() error {
		w.RunPeriodic(gctx, cfg.ExportInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		stop()
		if cerr := res.Cleanup(); cerr != nil {
			logger.Error("Backend cleanup failed", log.FieldError, cerr)
		}
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// newExporter picks Google Sheets when a spreadsheet is configured and an
// in-process table otherwise.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.SnapshotExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exporting in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
