package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/moneta-hq/moneta/internal/engine"
)

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Importer walks a directory tree and stores each Markdown file as a memory.
type Importer struct {
	engine *engine.MemoryEngine
}

// New creates an importer feeding the given engine.
func New(eng *engine.MemoryEngine) *Importer {
	return &Importer{engine: eng}
}

// ImportDir imports every .md file under root. Files that fail to parse or
// store are logged and counted, not fatal; a failing embedding provider
// aborts the run since nothing further would succeed.
func (im *Importer) ImportDir(ctx context.Context, root string) (*Result, error) {
	result := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("WARNING: Skipping %s: %v", path, err)
			result.Failed++
			return nil
		}

		note, err := ParseNote(string(raw))
		if err != nil {
			log.Printf("WARNING: Skipping %s: %v", path, err)
			result.Failed++
			return nil
		}
		if note.Content == "" {
			result.Skipped++
			return nil
		}

		if _, err := im.engine.AddMemory(ctx, note.Content, note.Tags); err != nil {
			if isFatal(err) {
				return fmt.Errorf("importer: aborting at %s: %w", path, err)
			}
			log.Printf("WARNING: Failed to store %s: %v", path, err)
			result.Failed++
			return nil
		}

		result.Imported++
		return nil
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

// isFatal reports whether an AddMemory error should abort the whole run.
func isFatal(err error) bool {
	return errors.Is(err, engine.ErrEmbeddingUnavailable) ||
		errors.Is(err, engine.ErrWritesBlocked) ||
		errors.Is(err, engine.ErrGraphRebuild)
}
