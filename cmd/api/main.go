package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"chatResume/internal/api"
	"chatResume/internal/auth"
	"chatResume/internal/chatbot"
	"chatResume/internal/config"
	"chatResume/internal/database"
	"chatResume/internal/nlp"
	"chatResume/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := db.AutoMigrate(&database.SessionRecord{}, &database.Resume{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	tokens, err := auth.NewTokenService(cfg.Auth.SessionTokenSecret, cfg.Auth.SessionTokenTTL())
	if err != nil {
		log.Fatalf("init token service: %v", err)
	}

	extractor, err := nlp.NewGeminiExtractor(context.Background(), cfg.NLP.GeminiAPIKey, cfg.NLP.Model, logger)
	if err != nil {
		log.Fatalf("init nlp extractor: %v", err)
	}
	if extractor == nil {
		logger.Info("nlp extractor disabled, no api key configured")
	}

	store := chatbot.NewStore()
	progress := chatbot.NewTracker()
	engine := chatbot.NewEngine(cfg.Chatbot, store, progress, extractor, logger)

	reaper := chatbot.NewReaper(store, progress, cfg.Chatbot.CleanupInterval(), cfg.Chatbot.ResponseTimeout(), logger)
	reaper.Start()
	defer reaper.Stop()

	router := api.NewRouter()
	api.RegisterRoutes(router, cfg, db, asynqClient, engine, tokens, extractor, redisClient, storageClient, logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
