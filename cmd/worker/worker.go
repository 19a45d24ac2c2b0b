package main

import (
	"context"
	"log"
	"time"

	"rag-chatbot-platform/internal/ai"
	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/fetcher"
	"rag-chatbot-platform/internal/logger"
	"rag-chatbot-platform/internal/queue"
	"rag-chatbot-platform/services"

	"github.com/hibiken/asynq"
)

// The worker runs ingestion tasks off the queue: document parsing,
// URL fetching, reprocessing. It shares the service layer with the API
// server but none of the HTTP surface.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	embedder, err := ai.NewEmbedder(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	knowledge := services.NewKnowledgeService(db, embedder, fetcher.New(cfg), cfg)

	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	})

	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(knowledge).Register(mux)

	logger.Info("worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatal("Worker stopped:", err)
	}
}
