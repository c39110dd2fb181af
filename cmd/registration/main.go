package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/database"
	"github.com/rmaganhoto/coursereg/internal/logger"
	"github.com/rmaganhoto/coursereg/internal/models"
)

const publishBuffer = 64

type application struct {
	db        *sql.DB
	models    models.Models
	publisher eventPublisher
	logger    *slog.Logger
}

func main() {
	var dev bool
	flag.BoolVar(&dev, "dev", false, "Enable godotenv")
	flag.Parse()

	logger := logger.New()

	if dev {
		if err := godotenv.Load(); err != nil {
			logger.Error("Error loading .env file", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection()
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	appModels := models.NewModels(db)
	if err := appModels.Registration.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to create schema", "error", err)
		os.Exit(1)
	}
	if err := appModels.IdempotencyKey.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to create schema", "error", err)
		os.Exit(1)
	}

	b, err := broker.New()
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	if err := b.EnsureExchange(); err != nil {
		logger.Error("Failed to declare exchange", "error", err)
		os.Exit(1)
	}

	pub := newBackgroundPublisher(b, logger, publishBuffer)
	pub.Start(ctx)

	app := &application{
		db:        db,
		models:    appModels,
		publisher: pub,
		logger:    logger,
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		logger.Error("API_PORT empty")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: app.routes(),
	}

	go func() {
		logger.Info("API starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Drain queued events before the broker connection goes away.
	pub.Stop()
	logger.Info("API shutdown complete.")
}
