// Package docstore provides document store adapters.
// Clean Architecture: Adapter implementing ports.DocumentStore.
// Ranking is keyword overlap; both stores share it so results do not depend on the backend.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

// InMemoryStore keeps chunks in memory and optionally snapshots them to a JSON file.
type InMemoryStore struct {
	mu       sync.RWMutex
	chunks   map[string]entities.Chunk // chunkID -> chunk
	snapshot string
}

// NewInMemoryStore creates a store with no persistence.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{chunks: make(map[string]entities.Chunk)}
}

// NewSnapshotStore creates an in-memory store backed by a JSON file.
// An existing snapshot is loaded; every mutation rewrites it.
func NewSnapshotStore(path string) (*InMemoryStore, error) {
	s := &InMemoryStore{chunks: make(map[string]entities.Chunk), snapshot: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add saves chunks, replacing chunks with the same ID.
func (s *InMemoryStore) Add(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.chunks)
	for _, chunk := range chunks {
		next[chunk.ID] = chunk
	}
	return s.commitLocked(next)
}

// Search returns the top k chunks by keyword score.
func (s *InMemoryStore) Search(ctx context.Context, text string, k int) ([]entities.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return rank(text, s.allLocked(), k), nil
}

// DeleteBySource removes all chunks of a document.
func (s *InMemoryStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.chunks)
	removed := 0
	for id, c := range next {
		if c.Source == source {
			delete(next, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.commitLocked(next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats summarizes the store contents.
func (s *InMemoryStore) Stats(ctx context.Context) (entities.DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, _ := summarize(s.allLocked())
	return stats, nil
}

// ListDocuments returns one entry per document, sorted by name.
func (s *InMemoryStore) ListDocuments(ctx context.Context) ([]entities.DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, docs := summarize(s.allLocked())
	return docs, nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked(make(map[string]entities.Chunk))
}

func (s *InMemoryStore) allLocked() []entities.Chunk {
	out := make([]entities.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	return out
}

// snapshotChunk is the on-disk form of a chunk.
type snapshotChunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Source      string    `json:"source"`
	FileType    string    `json:"file_type"`
	Content     string    `json:"content"`
	Index       int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"upload_date"`
}

func (s *InMemoryStore) load() error {
	data, err := os.ReadFile(s.snapshot)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var records []snapshotChunk
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", s.snapshot, err)
	}
	for _, r := range records {
		s.chunks[r.ID] = entities.Chunk(r)
	}
	return nil
}

// commitLocked persists next and only then makes it the live contents, so a
// failed snapshot write leaves the store unchanged.
func (s *InMemoryStore) commitLocked(next map[string]entities.Chunk) error {
	if err := s.save(next); err != nil {
		return err
	}
	s.chunks = next
	return nil
}

// save writes the snapshot atomically via a temp file rename.
func (s *InMemoryStore) save(chunks map[string]entities.Chunk) error {
	if s.snapshot == "" {
		return nil
	}

	records := make([]snapshotChunk, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, snapshotChunk(c))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.snapshot), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp := s.snapshot + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshot); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
