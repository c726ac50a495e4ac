package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"canvas-backend/infrastructure/config"
	"canvas-backend/infrastructure/di"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	if container.QueueInfra.Consumer == nil {
		container.Logger.Fatal("Worker requires the sqs queue driver",
			zap.String("queueDriver", cfg.QueueDriver),
		)
	}

	// Stop polling on interrupt
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		container.Logger.Info("Shutting down worker...")
		cancel()
	}()

	container.Logger.Info("Starting worker",
		zap.String("queueUrl", cfg.QueueURL),
		zap.String("environment", cfg.Environment),
	)

	if err := container.QueueInfra.Consumer.Run(ctx); err != nil && err != context.Canceled {
		container.Logger.Error("Worker stopped with error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Worker stopped")
}
