package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/cache"
	"github.com/rmaganhoto/coursereg/internal/logger"
	"github.com/rmaganhoto/coursereg/internal/worker"
)

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

	b, err := broker.New()
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	err = b.Setup(
		broker.NotificationQueue,
		[]string{broker.RegistrationCompletedRoutingKey},
		broker.RetryArgs(broker.RegistrationCompletedRoutingKey),
	)
	if err != nil {
		logger.Error("Failed to set up broker topology", "error", err)
		os.Exit(1)
	}

	err = b.Setup(broker.DeadLetterQueue, []string{broker.RegistrationDeadRoutingKey}, nil)
	if err != nil {
		logger.Error("Failed to set up dead-letter queue", "error", err)
		os.Exit(1)
	}

	c, err := cache.New()
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	if err := c.Ping(ctx); err != nil {
		logger.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	h := &handler{
		dedup:  c,
		broker: b,
		logger: logger,
	}

	w := worker.New(broker.NotificationQueue, b, logger)
	if err := w.Run(ctx, h); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete.")
}
