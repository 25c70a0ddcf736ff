package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/config"
	"github.com/Brownbull/gabeda-backend/internal/http"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

func main() {
	// Initialize context
	ctx, err := config.InitContext()
	if err != nil {
		log.Fatalf("Failed to initialize context: %v", err)
	}

	defer func() {
		if err := ctx.Logger.Sync(); err != nil {
			fmt.Printf("Failed to sync logger: %v\n", err)
		}
	}()

	// Ensure the database connection is closed when the application exits
	sqlDB, err := ctx.DB.DB()
	if err != nil {
		ctx.Logger.Fatal("Failed to get underlying SQL DB from GORM DB", zap.Error(err))
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			ctx.Logger.Fatal("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run the job runner in-process when no dedicated worker is deployed.
	if os.Getenv("EMBEDDED_WORKER") == "true" {
		events := services.NewRedisProgressPublisher(ctx.RedisClient, ctx.Logger)
		jobs := store.NewJobStore(ctx.DB, ctx.Logger, events)
		results := store.NewResultStore(ctx.DB, ctx.Logger)
		txs := store.NewTransactionStore(ctx.DB, ctx.Logger)
		uploads := store.NewUploadStore(ctx.DB, ctx.Logger)
		analytics := store.NewAnalyticsStore(ctx.DB, ctx.Logger)
		indexer := services.NewSearchIndexer(ctx.MeilisearchClient, ctx.Logger)

		runner := services.NewJobRunner(ctx.DB, ctx.Logger, jobs, results, txs, uploads, analytics, indexer)
		go runner.Run(context.Background())
	}

	// Initialize HTTP service
	service := http.NewHTTPService(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start the server
	if err := service.Engine().Run(":" + port); err != nil {
		ctx.Logger.Fatal("Failed to start the server", zap.Error(err))
	}
}
