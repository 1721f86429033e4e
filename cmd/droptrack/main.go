package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"droptrack/internal/amqp"
	"droptrack/internal/config"
	"droptrack/internal/httpapi"
	applog "droptrack/internal/log"
	"droptrack/internal/service"
	"droptrack/internal/store"
)

func main() {
	// .env is optional; production relies on real environment variables.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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
	logger.Info("Store initialized", applog.FieldBackend, cfg.DataBackend)

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	records := service.NewRecords(st, events)

	srv := httpapi.NewServer(":"+cfg.Port, records, httpapi.Options{
		Development:   cfg.Development(),
		SessionSecret: cfg.SessionSecret,
		Auth: httpapi.AuthOptions{
			Username:     cfg.AuthUsername,
			Password:     cfg.AuthPassword,
			PasswordHash: cfg.AuthPasswordHash,
			SessionTTL:   cfg.SessionTTL,
		},
		StatsCacheSize: cfg.StatsCacheSize,
		StatsCacheTTL:  cfg.StatsCacheTTL,
	})

	// Server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := events.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("Store close error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting droptrack server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
