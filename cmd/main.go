package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/assetfiles/internal/config"
	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/mansoorceksport/assetfiles/internal/repository"
	"github.com/mansoorceksport/assetfiles/internal/server"
	"github.com/mansoorceksport/assetfiles/internal/service"
	"github.com/mansoorceksport/assetfiles/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting Asset Files Service...")

	ctx := context.Background()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.ConfigFromEnv(cfg.OTEL))
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	policies, err := service.LoadPolicyTable(cfg.Policy.File)
	if err != nil {
		log.Fatalf("Failed to load policy table: %v", err)
	}
	if cfg.Policy.File != "" {
		log.Printf("✓ Policy table loaded from %s", cfg.Policy.File)
	}

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	// Add OTEL monitor for MongoDB tracing
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctx, mongoOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	// Verify both backends in parallel; either failing aborts startup
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(pingCtx)
	g.Go(func() error {
		if err := mongoClient.Ping(gctx, nil); err != nil {
			return fmt.Errorf("ping MongoDB: %w", err)
		}
		log.Println("✓ MongoDB connected")
		return nil
	})
	g.Go(func() error {
		if err := redisClient.Ping(gctx).Err(); err != nil {
			return fmt.Errorf("ping Redis: %w", err)
		}
		log.Println("✓ Redis connected")
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("Failed to reach backing services: %v", err)
	}

	// The object store is optional at startup: redirect attachments keep working
	var contentRepo domain.ContentRepository
	s3Repo, err := repository.NewS3ContentRepository(ctx, cfg.S3)
	if err != nil {
		log.Printf("Warning: Failed to initialize S3 content store: %v", err)
	} else {
		contentRepo = s3Repo
		log.Println("✓ S3 content store ready")
	}

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     mongoClient.Database(cfg.MongoDB.Database),
		RedisClient: redisClient,
		ContentRepo: contentRepo,
		Policies:    policies,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	// Start server
	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
