package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
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

	srv := apphttp.NewServer(":"+cfg.Port, res.Gateway, apphttp.WithLogger(logger))
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expense server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	// Changes made by other processes refresh this process's subscribers.
	if res.AMQP != nil {
		client := res.AMQP
		g.Go(func() error {
			err := client.Consume(gctx, func(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
				if msg.Source == client.Source() {
					return nil
				}
				return res.Gateway.HandleChange(ctx, msg.Change())
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Change consumer stopped, serving without remote refresh", log.FieldError, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stop()
		if cerr := res.Cleanup(); cerr != nil {
			logger.Error("Backend cleanup failed", log.FieldError, cerr)
		}
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
