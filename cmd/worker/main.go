package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/config"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

func main() {
	appCtx, err := config.InitContext()
	if err != nil {
		log.Fatalf("Failed to initialize context: %v", err)
	}

	defer func() {
		if err := appCtx.Logger.Sync(); err != nil {
			fmt.Printf("Failed to sync logger: %v\n", err)
		}
	}()

	sqlDB, err := appCtx.DB.DB()
	if err != nil {
		appCtx.Logger.Fatal("Failed to get underlying SQL DB from GORM DB", zap.Error(err))
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			appCtx.Logger.Fatal("Failed to close database connection", zap.Error(err))
		}
	}()

	events := services.NewRedisProgressPublisher(appCtx.RedisClient, appCtx.Logger)
	jobs := store.NewJobStore(appCtx.DB, appCtx.Logger, events)
	results := store.NewResultStore(appCtx.DB, appCtx.Logger)
	txs := store.NewTransactionStore(appCtx.DB, appCtx.Logger)
	uploads := store.NewUploadStore(appCtx.DB, appCtx.Logger)
	analytics := store.NewAnalyticsStore(appCtx.DB, appCtx.Logger)
	indexer := services.NewSearchIndexer(appCtx.MeilisearchClient, appCtx.Logger)

	runner := services.NewJobRunner(appCtx.DB, appCtx.Logger, jobs, results, txs, uploads, analytics, indexer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner.Run(ctx)
}
