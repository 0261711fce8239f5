package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kennel_media/internal/events"
	"kennel_media/internal/logging"
	"kennel_media/internal/models"
	"kennel_media/internal/objectstore"
	"kennel_media/internal/server"
	"kennel_media/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := objectstore.NewBackend(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}
	objects, err := objectstore.NewClient(cfg.Storage, backend)
	if err != nil {
		log.Fatalf("failed to init object store client: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
	}
	defer publisher.Close()

	// Upload ledger: acknowledged uploads flow from Kafka into Postgres.
	var ledger server.Ledger
	if cfg.DatabaseURL != "" && cfg.KafkaBroker != "" {
		db, err := storage.NewStorage(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("failed to init storage: %v", err)
		}
		defer db.Close()
		ledger = db

		consumer := events.NewKafkaConsumer(cfg.KafkaBroker, cfg.KafkaTopic, db.SaveUpload, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error(ctx, "upload ledger consumer stopped", "err", err)
			}
		}()
	}

	srv := server.NewServer(cfg, objects, publisher, ledger, logger)

	go func() {
		logger.Info(ctx, "starting server", "addr", cfg.ServerAddr, "driver", cfg.Storage.Driver)
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown failed", "err", err)
	}
}
