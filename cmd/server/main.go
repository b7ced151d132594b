// Package main provides the content ingestion and retrieval API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/bull/stash/internal/api"
	"github.com/bull/stash/internal/embedding"
	"github.com/bull/stash/internal/ingest"
	"github.com/bull/stash/internal/retrieval"
	"github.com/bull/stash/internal/store"
	"github.com/bull/stash/internal/summarize"
	"github.com/bull/stash/internal/vecindex"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Configuration from environment
	addr := getEnv("STASH_ADDR", "0.0.0.0:8000")
	dataDir := getEnv("STASH_DATA_DIR", "data")
	embeddingModel := getEnv("STASH_EMBEDDING_MODEL", embedding.DefaultModel)
	embeddingDim := getEnvInt("STASH_EMBEDDING_DIM", embedding.DefaultDimension)
	summaryModel := getEnv("STASH_SUMMARY_MODEL", summarize.DefaultModel)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	// Initialize storage
	st, err := store.Open(filepath.Join(dataDir, "stash.db"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	// Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, embeddingModel, embeddingDim)

	// Open (or create) the persistent vector index
	index, err := vecindex.Open(
		embedder,
		filepath.Join(dataDir, "vectors.bin"),
		filepath.Join(dataDir, "vector_slots.json"),
		logger,
	)
	if err != nil {
		log.Fatalf("failed to open vector index: %v", err)
	}

	summarizer := summarize.NewOpenAI(embeddingClient.Client(), summaryModel)

	ingestSvc := ingest.NewService(st, index, logger)
	retrievalSvc := retrieval.NewService(st, index, summarizer, logger)

	r := gin.New()
	r.Use(gin.Recovery())

	server := api.NewServer(&api.Config{
		Ingest:    ingestSvc,
		Retrieval: retrievalSvc,
		Store:     st,
		Index:     index,
		Logger:    logger,
	})
	server.Routes(r)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("Starting API server on %s (index size: %d)", addr, index.Count())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
