// Package sqlite implements storage.MemoryStore on SQLite using the pure-Go
// modernc.org/sqlite driver, so the default deployment needs no cgo and no
// external database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/moneta-hq/moneta/internal/storage"
	"github.com/moneta-hq/moneta/pkg/types"
)

// Schema creates the memories table. Embeddings are stored inline as a BLOB
// of little-endian float64s; the engine loads the whole table at startup and
// never queries vectors in SQL.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id                 TEXT PRIMARY KEY,
	content            TEXT NOT NULL,
	tags               TEXT,
	embedding          BLOB NOT NULL,
	dimensions         INTEGER NOT NULL,
	base_score         REAL NOT NULL DEFAULT 0,
	reinforcement      REAL NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL,
	last_reinforced_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
`

// MemoryStore implements storage.MemoryStore using SQLite.
type MemoryStore struct {
	db *sql.DB
}

// NewMemoryStore opens (or creates) a SQLite database at the given DSN and
// ensures the schema exists.
func NewMemoryStore(dsn string) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &MemoryStore{db: db}, nil
}

// Save creates or updates a memory (upsert semantics).
func (s *MemoryStore) Save(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if memory.Content == "" {
		return fmt.Errorf("%w: memory content is required", storage.ErrInvalidInput)
	}
	if len(memory.Embedding) == 0 {
		return fmt.Errorf("%w: memory embedding is required", storage.ErrInvalidInput)
	}

	var tagsJSON []byte
	if len(memory.Tags) > 0 {
		var err error
		tagsJSON, err = json.Marshal(memory.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
	}

	createdAt := memory.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO memories (
			id, content, tags, embedding, dimensions,
			base_score, reinforcement, created_at, last_reinforced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			tags = excluded.tags,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			base_score = excluded.base_score,
			reinforcement = excluded.reinforcement,
			last_reinforced_at = excluded.last_reinforced_at
	`

	_, err := s.db.ExecContext(ctx, query,
		memory.ID,
		memory.Content,
		nullableBytes(tagsJSON),
		encodeVector(memory.Embedding),
		len(memory.Embedding),
		memory.BaseScore,
		memory.Reinforcement,
		createdAt,
		nullableTime(memory.LastReinforcedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}
	return nil
}

// UpdateScores writes score changes for a batch of memories in one
// transaction. Unknown ids are skipped silently; the in-memory engine is the
// source of truth for membership.
func (s *MemoryStore) UpdateScores(ctx context.Context, updates []storage.ScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE memories
		SET base_score = ?, reinforcement = ?, last_reinforced_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare score update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.BaseScore, u.Reinforcement, nullableTime(u.LastReinforcedAt), u.ID); err != nil {
			return fmt.Errorf("failed to update scores for %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit score updates: %w", err)
	}
	return nil
}

// Delete removes a memory permanently. Returns storage.ErrNotFound if the
// memory doesn't exist.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LoadAll returns every stored memory, embeddings included.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]*types.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, tags, embedding, dimensions,
		       base_score, reinforcement, created_at, last_reinforced_at
		FROM memories
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []*types.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return memories, nil
}

// Close closes the underlying database connection.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

func scanMemory(rows *sql.Rows) (*types.Memory, error) {
	var (
		mem              types.Memory
		tagsJSON         sql.NullString
		blob             []byte
		dimensions       int
		lastReinforcedAt sql.NullTime
	)

	if err := rows.Scan(
		&mem.ID, &mem.Content, &tagsJSON, &blob, &dimensions,
		&mem.BaseScore, &mem.Reinforcement, &mem.CreatedAt, &lastReinforcedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan memory: %w", err)
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &mem.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", mem.ID, err)
		}
	}

	vector, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedding for %s: %w", mem.ID, err)
	}
	if len(vector) != dimensions {
		return nil, fmt.Errorf("embedding for %s has %d dimensions, expected %d", mem.ID, len(vector), dimensions)
	}
	mem.Embedding = vector

	if lastReinforcedAt.Valid {
		t := lastReinforcedAt.Time
		mem.LastReinforcedAt = &t
	}

	return &mem, nil
}

// encodeVector packs a vector as little-endian float64s.
func encodeVector(vector []float64) []byte {
	buf := make([]byte, 8*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian float64 blob.
func decodeVector(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(blob))
	}
	vector := make([]float64, len(blob)/8)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vector, nil
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}
