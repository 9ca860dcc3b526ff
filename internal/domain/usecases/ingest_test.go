package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// mockLoader implements ports.DocumentLoader for testing
type mockLoader struct {
	docs map[string]string
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, ok := m.docs[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return &entities.Document{ID: "id-" + path, Name: path[strings.LastIndex(path, "/")+1:], Path: path, Content: content}, nil
}

func (m *mockLoader) LoadBytes(ctx context.Context, name string, data []byte) (*entities.Document, error) {
	return &entities.Document{ID: "id-" + name, Name: name, Content: string(data), Size: int64(len(data))}, nil
}

func (m *mockLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown", ".pdf"}
}

// mockDocStore implements ports.DocumentStore for testing
type mockDocStore struct {
	mu     sync.Mutex
	chunks []entities.Chunk
	addErr error
}

func (m *mockDocStore) Add(ctx context.Context, chunks []entities.Chunk) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockDocStore) Search(ctx context.Context, text string, k int) ([]entities.SearchResult, error) {
	return nil, nil
}

func (m *mockDocStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	removed := 0
	for _, c := range m.chunks {
		if c.Source == source {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return removed, nil
}

func (m *mockDocStore) Stats(ctx context.Context) (entities.DocumentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entities.DocumentStats{TotalChunks: len(m.chunks)}, nil
}

func (m *mockDocStore) ListDocuments(ctx context.Context) ([]entities.DocumentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := map[string]*entities.DocumentInfo{}
	var out []entities.DocumentInfo
	for _, c := range m.chunks {
		if d, ok := byName[c.Source]; ok {
			d.ChunkCount++
			continue
		}
		out = append(out, entities.DocumentInfo{ID: c.DocumentID, Name: c.Source, ChunkCount: 1})
		byName[c.Source] = &out[len(out)-1]
	}
	return out, nil
}

func (m *mockDocStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// mockWatcher implements ports.FileWatcher with a caller-driven channel
type mockWatcher struct {
	events chan ports.FileEvent
}

func (m *mockWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return m.events, nil
}

func (m *mockWatcher) Stop() error { return nil }

func TestIngestUseCase_ChunksDocument(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 100, 20, nil)

	doc := &entities.Document{
		ID:       "doc-1",
		Name:     "test.txt",
		FileType: ".txt",
		Content:  "This is some content that should be chunked properly.",
	}

	info, err := uc.Ingest(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, store.chunks, 1)
	c := store.chunks[0]
	assert.Equal(t, "test.txt", c.Source)
	assert.Equal(t, ".txt", c.FileType)
	assert.Equal(t, "doc-1", c.DocumentID)
	assert.Equal(t, 1, c.TotalChunks)
	assert.False(t, c.UploadedAt.IsZero())
	assert.Equal(t, 1, info.ChunkCount)
	assert.Equal(t, int64(len(doc.Content)), info.Size)
}

func TestIngestUseCase_EmptyDocument(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 100, 20, nil)

	info, err := uc.Ingest(context.Background(), &entities.Document{ID: "empty", Name: "e.txt", Content: "  "})

	require.NoError(t, err)
	assert.Equal(t, 0, info.ChunkCount)
	assert.Empty(t, store.chunks)
}

func TestIngestUseCase_LargeDocument(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 50, 10, nil)

	doc := &entities.Document{
		ID:      "big",
		Name:    "big.txt",
		Content: strings.TrimSpace(strings.Repeat("word ", 40)),
	}

	_, err := uc.Ingest(context.Background(), doc)
	require.NoError(t, err)

	require.Greater(t, len(store.chunks), 2)
	for i, c := range store.chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 50)
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(store.chunks), c.TotalChunks)
	}
}

func TestIngestUseCase_ReingestReplaces(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 100, 20, nil)
	ctx := context.Background()

	_, err := uc.IngestBytes(ctx, "rules.md", []byte("old rules"))
	require.NoError(t, err)
	_, err = uc.IngestBytes(ctx, "rules.md", []byte("new rules"))
	require.NoError(t, err)

	require.Len(t, store.chunks, 1)
	assert.Equal(t, "new rules", store.chunks[0].Content)
}

func TestIngestUseCase_UnsupportedType(t *testing.T) {
	uc := NewIngestUseCase(&mockLoader{}, &mockDocStore{}, 100, 20, nil)

	_, err := uc.IngestBytes(context.Background(), "malware.exe", []byte("x"))

	assert.ErrorIs(t, err, ports.ErrUnsupportedFileType)
}

func TestIngestUseCase_AddError(t *testing.T) {
	uc := NewIngestUseCase(&mockLoader{}, &mockDocStore{addErr: errors.New("disk full")}, 100, 20, nil)

	_, err := uc.IngestBytes(context.Background(), "a.txt", []byte("content"))

	assert.ErrorContains(t, err, "disk full")
}

func TestIngestUseCase_Delete(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 100, 20, nil)
	ctx := context.Background()
	_, err := uc.IngestBytes(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)
	_, err = uc.IngestBytes(ctx, "b.txt", []byte("beta"))
	require.NoError(t, err)

	name, n, err := uc.Delete(ctx, "id-a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", name)
	assert.Equal(t, 1, n)

	name, _, err = uc.Delete(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", name)

	_, _, err = uc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrDocumentNotFound)
}

func TestIngestUseCase_SeedIfEmpty(t *testing.T) {
	store := &mockDocStore{}
	uc := NewIngestUseCase(&mockLoader{}, store, 100, 20, nil)
	fsys := fstest.MapFS{
		"policy.md":  {Data: []byte("attendance policy")},
		"notes.txt":  {Data: []byte("notes")},
		"image.png":  {Data: []byte{0x89}},
		"sub/x.md":   {Data: []byte("nested")},
		"empty.txt":  {Data: []byte("")},
		"readme.pdf": {Data: []byte("pdf text")},
	}

	names, err := uc.SeedIfEmpty(context.Background(), fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty.txt", "notes.txt", "policy.md", "readme.pdf"}, names)
	assert.Equal(t, 3, store.count())

	names, err = uc.SeedIfEmpty(context.Background(), fsys)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, 3, store.count())
}

func TestIngestUseCase_Watch(t *testing.T) {
	store := &mockDocStore{}
	loader := &mockLoader{docs: map[string]string{"/docs/hostel.md": "hostel rules"}}
	uc := NewIngestUseCase(loader, store, 100, 20, nil)
	watcher := &mockWatcher{events: make(chan ports.FileEvent)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Watch(ctx, watcher, "/docs") }()

	watcher.events <- ports.FileEvent{Path: "/docs/hostel.md", Operation: ports.FileCreated}
	watcher.events <- ports.FileEvent{Path: "/docs/photo.jpg", Operation: ports.FileCreated}
	assert.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	watcher.events <- ports.FileEvent{Path: "/docs/hostel.md", Operation: ports.FileDeleted}
	assert.Eventually(t, func() bool { return store.count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestChunkText(t *testing.T) {
	assert.Nil(t, chunkText("", 10, 2))
	assert.Equal(t, []string{"short"}, chunkText("short", 10, 2))

	// no spaces at all still terminates
	got := chunkText(strings.Repeat("x", 25), 10, 3)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxxxxxxx", "xxxx"}, got)
}
