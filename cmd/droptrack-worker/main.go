package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"droptrack/internal/amqp"
	"droptrack/internal/config"
	applog "droptrack/internal/log"
	"droptrack/internal/store"
	"droptrack/internal/worker"
)

func main() {
	// .env is optional; production relies on real environment variables.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: applog.ComponentAMQP,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	st, err := store.Open(store.Options{
		Backend:     cfg.DataBackend,
		SQLitePath:  cfg.SQLiteDBPath,
		PostgresURL: cfg.PostgresURL,
	})
	if err != nil {
		logger.Error("Failed to open store", "error", err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer st.Close()

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	w := worker.NewSummaryWorker(st)
	logger.Info("Worker consuming record events", "queue", cfg.AMQPQueue, applog.FieldBackend, cfg.DataBackend)

	if err := w.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
