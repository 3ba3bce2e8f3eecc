// moneta-import bulk-loads Markdown notes into the memory database. Each .md
// file becomes one memory; the server picks up the imported set on its next
// start (or run the importer against a stopped server's database).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/moneta-hq/moneta/internal/config"
	"github.com/moneta-hq/moneta/internal/embedding"
	"github.com/moneta-hq/moneta/internal/engine"
	"github.com/moneta-hq/moneta/internal/importer"
	"github.com/moneta-hq/moneta/internal/storage/sqlite"
)

func main() {
	dir := flag.String("dir", "", "Directory of Markdown notes to import")
	flag.Parse()

	if *dir == "" {
		log.Fatal("Usage: moneta-import -dir <notes directory>")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: Failed to load .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.Engine != "sqlite" {
		log.Fatalf("moneta-import only supports the sqlite storage engine (configured: %s)", cfg.Storage.Engine)
	}

	store, err := sqlite.NewMemoryStore(cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := memoryEngine.Load(ctx); err != nil {
		log.Fatalf("Failed to load memories: %v", err)
	}

	log.Printf("Importing %s into %s (%d existing memories)", *dir, cfg.Storage.DSN, memoryEngine.Count())

	summary, err := importer.New(memoryEngine).ImportDir(ctx, *dir)
	if err != nil {
		log.Fatalf("Import failed: %v (imported %d before failure)", err, summary.Imported)
	}

	log.Printf("Import complete: %d imported, %d skipped, %d failed",
		summary.Imported, summary.Skipped, summary.Failed)
}
