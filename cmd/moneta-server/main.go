// moneta-server runs the Moneta memory engine behind its HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/moneta-hq/moneta/internal/backup"
	"github.com/moneta-hq/moneta/internal/config"
	"github.com/moneta-hq/moneta/internal/embedding"
	"github.com/moneta-hq/moneta/internal/engine"
	"github.com/moneta-hq/moneta/internal/server"
	"github.com/moneta-hq/moneta/internal/storage"
	"github.com/moneta-hq/moneta/internal/storage/postgres"
	"github.com/moneta-hq/moneta/internal/storage/sqlite"
)

func main() {
	// Optional .env for local development; missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: Failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	provider, err := embedding.NewProvider(embedding.Config{
		Provider:   cfg.Embedding.Provider,
		OllamaURL:  cfg.Embedding.OllamaURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}

	memoryEngine, err := engine.NewMemoryEngine(provider, store, engine.Config{
		BaseThreshold:       cfg.Engine.BaseThreshold,
		DefaultTopK:         cfg.Engine.DefaultTopK,
		DefaultMinRelevance: cfg.Engine.DefaultMinRelevance,
		ScoreNormalization:  cfg.Engine.ScoreNormalization,
	})
	if err != nil {
		log.Fatalf("Failed to initialize memory engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := memoryEngine.Load(ctx); err != nil {
		log.Fatalf("Failed to load memories: %v", err)
	}

	if cfg.Backup.Enabled && cfg.Storage.Engine == "sqlite" {
		interval, err := time.ParseDuration(cfg.Backup.Interval)
		if err != nil {
			log.Fatalf("Invalid backup interval %q: %v", cfg.Backup.Interval, err)
		}
		snapshots, err := backup.NewService(backup.Config{
			DBPath:   cfg.Storage.DSN,
			Dir:      cfg.Backup.Dir,
			Interval: interval,
			Keep:     cfg.Backup.Keep,
			Verify:   cfg.Backup.Verify,
		})
		if err != nil {
			log.Fatalf("Failed to initialize snapshots: %v", err)
		}
		go snapshots.Run(ctx)
	}

	addr, _, err := server.Start(ctx, cfg, memoryEngine)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Moneta running at http://%s (provider: %s, %d memories)",
		addr, provider.GetModel(), memoryEngine.Count())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore builds the configured persistence backend. The "memory" engine
// returns nil: the memory set then lives only for the process lifetime.
func openStore(cfg *config.Config) (storage.MemoryStore, error) {
	switch cfg.Storage.Engine {
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return sqlite.NewMemoryStore(cfg.Storage.DSN)
	case "postgres":
		return postgres.NewMemoryStore(cfg.Storage.DSN)
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}
