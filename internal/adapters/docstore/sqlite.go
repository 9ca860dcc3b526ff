package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

// SQLiteStore implements ports.DocumentStore with SQLite persistence.
// Search scans every chunk; the corpus is a handful of policy documents.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	dataPath string
}

// NewSQLiteStore opens (or creates) documents.db under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}

	// Ensure data directory exists
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "documents.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		dataPath: dataPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source TEXT NOT NULL,
		file_type TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		upload_date DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add saves chunks, replacing chunks with the same ID.
func (s *SQLiteStore) Add(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(id, document_id, source, file_type, content, chunk_index, total_chunks, size, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err = stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.Source, c.FileType, c.Content,
			c.Index, c.TotalChunks, c.Size, c.UploadedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Search returns the top k chunks by keyword score.
func (s *SQLiteStore) Search(ctx context.Context, text string, k int) ([]entities.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return rank(text, chunks, k), nil
}

// DeleteBySource removes all chunks of a document.
func (s *SQLiteStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

// Stats summarizes the store contents.
func (s *SQLiteStore) Stats(ctx context.Context) (entities.DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, err := s.all(ctx)
	if err != nil {
		return entities.DocumentStats{}, err
	}
	stats, _ := summarize(chunks)
	return stats, nil
}

// ListDocuments returns one entry per document, sorted by name.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]entities.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	_, docs := summarize(chunks)
	return docs, nil
}

// Clear removes all data from the store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) all(ctx context.Context) ([]entities.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, source, file_type, content, chunk_index, total_chunks, size, upload_date
		FROM chunks
		ORDER BY source, chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []entities.Chunk
	for rows.Next() {
		var c entities.Chunk
		var uploaded time.Time
		err := rows.Scan(&c.ID, &c.DocumentID, &c.Source, &c.FileType, &c.Content,
			&c.Index, &c.TotalChunks, &c.Size, &uploaded)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		c.UploadedAt = uploaded
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
