// Package backup provides periodic snapshots of the SQLite memory database.
// Snapshots are consistent point-in-time copies taken with VACUUM INTO, which
// is safe under WAL mode while the engine keeps writing.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// snapshotPrefix and snapshotExt frame the timestamped snapshot filenames,
// e.g. moneta-20260831T120000Z.db.
const (
	snapshotPrefix = "moneta-"
	snapshotExt    = ".db"
	timestampFmt   = "20060102T150405Z"
)

// Config configures the snapshot service.
type Config struct {
	// DBPath is the SQLite database file to snapshot.
	DBPath string

	// Dir is where snapshots are written.
	Dir string

	// Interval is the time between snapshots (default: 1 hour).
	Interval time.Duration

	// Keep is how many snapshots to retain, oldest pruned first (default: 24).
	Keep int

	// Verify runs an integrity check on each snapshot after writing it.
	Verify bool
}

// Service takes periodic snapshots of the memory database.
type Service struct {
	cfg Config
}

// NewService validates the configuration and prepares the snapshot directory.
func NewService(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 24
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: failed to create snapshot directory: %w", err)
	}

	return &Service{cfg: cfg}, nil
}

// Run takes snapshots on the configured interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("Snapshot service started: interval=%v, dir=%s", s.cfg.Interval, s.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, err := s.Snapshot(ctx)
			if err != nil {
				log.Printf("ERROR: Snapshot failed: %v", err)
				continue
			}
			log.Printf("Snapshot written: %s", path)

			if err := s.prune(); err != nil {
				log.Printf("WARNING: Snapshot pruning failed: %v", err)
			}
		}
	}
}

// Snapshot writes one snapshot immediately and returns its path.
func (s *Service) Snapshot(ctx context.Context) (string, error) {
	name := snapshotPrefix + time.Now().UTC().Format(timestampFmt) + snapshotExt
	dest := filepath.Join(s.cfg.Dir, name)

	source, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", s.cfg.DBPath))
	if err != nil {
		return "", fmt.Errorf("backup: failed to open database: %w", err)
	}
	defer source.Close()

	if _, err := source.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return "", fmt.Errorf("backup: failed to write snapshot: %w", err)
	}

	if s.cfg.Verify {
		if err := verifySnapshot(dest); err != nil {
			os.Remove(dest)
			return "", err
		}
	}

	return dest, nil
}

// List returns all snapshot paths, newest first.
func (s *Service) List() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read snapshot directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		paths = append(paths, filepath.Join(s.cfg.Dir, name))
	}

	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// prune removes snapshots beyond the retention count, oldest first.
func (s *Service) prune() error {
	paths, err := s.List()
	if err != nil {
		return err
	}

	for _, path := range paths[min(len(paths), s.cfg.Keep):] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("backup: failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// verifySnapshot opens a snapshot read-only and runs SQLite's integrity check.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check failed to run: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}
