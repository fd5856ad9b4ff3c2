package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journey-insights/internal/cache"
	"journey-insights/internal/config"
	"journey-insights/internal/extractor"
	"journey-insights/internal/facts"
	"journey-insights/internal/parser"
	"journey-insights/internal/readiness"
	"journey-insights/internal/registry"
	"journey-insights/internal/repository"
	"journey-insights/internal/service"
	"journey-insights/internal/transport/rest"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	cfg := config.Load()

	log.Printf("AI Config:")
	log.Printf("  Extract model: %s", cfg.AI.Model)
	if cfg.AI.IsEnabled() {
		log.Println("  API Key:       configured")
	} else {
		log.Println("  API Key:       NOT SET (using mock extractor)")
	}

	// Survey-key registry
	reg := registry.Default()
	if cfg.RegistryFile != "" {
		loaded, err := registry.LoadYAML(cfg.RegistryFile)
		if err != nil {
			log.Fatal("Failed to load survey registry:", err)
		}
		reg = loaded
		log.Printf("Loaded survey registry from %s (%d keys)", cfg.RegistryFile, reg.Len())
	}

	// Readiness thresholds
	readinessCfg := readiness.DefaultConfig()
	if cfg.ReadinessFile != "" {
		loaded, err := readiness.LoadYAML(cfg.ReadinessFile)
		if err != nil {
			log.Fatal("Failed to load readiness config:", err)
		}
		readinessCfg = loaded
		log.Printf("Loaded readiness config %s from %s", readinessCfg.Version, cfg.ReadinessFile)
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisURI, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Repositories and caches
	docRepo := repository.NewDocumentRepo(db)
	factsRepo := repository.NewFactsRepo(db)
	factsCache := cache.NewFactsCache(rdb)

	// Services
	docParser := parser.New(reg)
	signalExtractor := extractor.NewGeminiExtractor(cfg.AI)
	sessionDeps := facts.SessionDeps{
		Registry:  reg,
		Extractor: signalExtractor,
	}
	ingestSvc := service.NewIngestService(docParser, docRepo, factsRepo, factsCache, sessionDeps)
	cohortSvc := service.NewCohortService(docRepo, factsRepo, factsCache, reg, readinessCfg)

	container := &rest.Container{
		IngestService: ingestSvc,
		CohortService: cohortSvc,
	}
	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /v1/documents")
		log.Println("  GET  /v1/programs/{programId}/facts")
		log.Println("  POST /v1/programs/{programId}/facts/rebuild")
		log.Println("  GET/POST /v1/programs/{programId}/readiness")
		log.Println("  GET  /health")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
