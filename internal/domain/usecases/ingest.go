// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code, NO external dependencies - just pure business logic.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// IngestUseCase handles document ingestion into the document store.
// Single Responsibility: Only ingestion logic.
type IngestUseCase struct {
	loader       ports.DocumentLoader
	store        ports.DocumentStore
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
	now          func() time.Time
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// Dependency Injection: Adapters are passed in, not created here.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	store ports.DocumentStore,
	chunkSize, chunkOverlap int,
	logger *zap.Logger,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = min(DefaultChunkOverlap, chunkSize/2)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		loader:       loader,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger.Named("ingest"),
		now:          time.Now,
	}
}

// Ingest chunks a document and stores it, replacing any earlier document with the same name.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) (entities.DocumentInfo, error) {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = uc.now().UTC()
	}
	if doc.Size == 0 {
		doc.Size = int64(len(doc.Content))
	}

	chunks := uc.chunkDocument(doc)
	info := entities.DocumentInfo{
		ID:         doc.ID,
		Name:       doc.Name,
		Size:       doc.Size,
		ChunkCount: len(chunks),
		UploadDate: doc.UploadedAt,
	}
	if len(chunks) == 0 {
		return info, nil // Empty document
	}

	if _, err := uc.store.DeleteBySource(ctx, doc.Name); err != nil {
		return info, fmt.Errorf("replacing %s: %w", doc.Name, err)
	}
	if err := uc.store.Add(ctx, chunks); err != nil {
		return info, fmt.Errorf("storing %s: %w", doc.Name, err)
	}

	uc.logger.Info("document ingested",
		zap.String("name", doc.Name),
		zap.String("id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return info, nil
}

// IngestFile loads a document from disk and ingests it.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) (entities.DocumentInfo, error) {
	if !uc.Supports(path) {
		return entities.DocumentInfo{}, fmt.Errorf("%s: %w", filepath.Base(path), ports.ErrUnsupportedFileType)
	}
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return entities.DocumentInfo{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return uc.Ingest(ctx, doc)
}

// IngestBytes ingests uploaded content under name.
func (uc *IngestUseCase) IngestBytes(ctx context.Context, name string, data []byte) (entities.DocumentInfo, error) {
	if !uc.Supports(name) {
		return entities.DocumentInfo{}, fmt.Errorf("%s: %w", name, ports.ErrUnsupportedFileType)
	}
	doc, err := uc.loader.LoadBytes(ctx, name, data)
	if err != nil {
		return entities.DocumentInfo{}, fmt.Errorf("loading %s: %w", name, err)
	}
	return uc.Ingest(ctx, doc)
}

// Delete removes a document found by ID or name and returns its name and removed chunk count.
func (uc *IngestUseCase) Delete(ctx context.Context, idOrName string) (string, int, error) {
	docs, err := uc.store.ListDocuments(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("listing documents: %w", err)
	}
	for _, d := range docs {
		if d.ID == idOrName || d.Name == idOrName {
			n, err := uc.store.DeleteBySource(ctx, d.Name)
			if err != nil {
				return d.Name, 0, fmt.Errorf("deleting %s: %w", d.Name, err)
			}
			uc.logger.Info("document deleted", zap.String("name", d.Name), zap.Int("chunks", n))
			return d.Name, n, nil
		}
	}
	return "", 0, fmt.Errorf("%s: %w", idOrName, ports.ErrDocumentNotFound)
}

// SeedFS ingests every supported file at the top level of fsys and returns the ingested names.
// Files that fail to load are logged and skipped.
func (uc *IngestUseCase) SeedFS(ctx context.Context, fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading seed documents: %w", err)
	}

	var ingested []string
	for _, e := range entries {
		if e.IsDir() || !uc.Supports(e.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			uc.logger.Warn("skipping seed document", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		if _, err := uc.IngestBytes(ctx, e.Name(), data); err != nil {
			uc.logger.Warn("skipping seed document", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		ingested = append(ingested, e.Name())
	}
	sort.Strings(ingested)
	return ingested, nil
}

// SeedIfEmpty seeds from fsys only when the store holds no documents.
func (uc *IngestUseCase) SeedIfEmpty(ctx context.Context, fsys fs.FS) ([]string, error) {
	stats, err := uc.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store stats: %w", err)
	}
	if stats.TotalChunks > 0 {
		return nil, nil
	}
	return uc.SeedFS(ctx, fsys)
}

// Watch keeps the store in sync with dir until ctx is done or the watcher stops.
func (uc *IngestUseCase) Watch(ctx context.Context, watcher ports.FileWatcher, dir string) error {
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			uc.handleEvent(ctx, ev)
		}
	}
}

func (uc *IngestUseCase) handleEvent(ctx context.Context, ev ports.FileEvent) {
	if !uc.Supports(ev.Path) {
		return
	}
	name := filepath.Base(ev.Path)

	switch ev.Operation {
	case ports.FileCreated, ports.FileModified:
		if _, err := uc.IngestFile(ctx, ev.Path); err != nil {
			uc.logger.Warn("ingest on change failed", zap.String("path", ev.Path), zap.Error(err))
		}
	case ports.FileDeleted:
		n, err := uc.store.DeleteBySource(ctx, name)
		if err != nil && !errors.Is(err, ports.ErrDocumentNotFound) {
			uc.logger.Warn("delete on removal failed", zap.String("path", ev.Path), zap.Error(err))
			return
		}
		uc.logger.Info("document removed", zap.String("name", name), zap.Int("chunks", n))
	}
}

// Supports reports whether the loader handles the file's extension.
func (uc *IngestUseCase) Supports(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range uc.loader.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// chunkDocument splits document content into overlapping chunks carrying the document metadata.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	parts := chunkText(doc.Content, uc.chunkSize, uc.chunkOverlap)
	chunks := make([]entities.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = entities.Chunk{
			ID:          generateChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			Source:      doc.Name,
			FileType:    doc.FileType,
			Content:     p,
			Index:       i,
			TotalChunks: len(parts),
			Size:        doc.Size,
			UploadedAt:  doc.UploadedAt,
		}
	}
	return chunks
}

// chunkText splits content into pieces of at most size characters, each
// overlapping the previous by up to overlap characters, breaking at spaces when possible.
// Pure business logic - no external dependencies.
func chunkText(content string, size, overlap int) []string {
	text := []rune(strings.TrimSpace(content))
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := min(start+size, len(text))

		// Try to break at word boundary
		if end < len(text) {
			if sp := lastSpace(text[start:end]); sp > 0 {
				end = start + sp
			}
		}

		if piece := strings.TrimSpace(string(text[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' || r[i] == '\n' {
			return i
		}
	}
	return -1
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(docID + "#" + strconv.Itoa(index)))
	return hex.EncodeToString(hash[:8])
}
