package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

var (
	_ ports.DocumentStore = (*SQLiteStore)(nil)
	_ ports.DocumentStore = (*InMemoryStore)(nil)
)

func sampleChunks() []entities.Chunk {
	uploaded := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return []entities.Chunk{
		{ID: "a0", DocumentID: "doc-a", Source: "attendance.md", FileType: ".md", Content: "Students must maintain 75% attendance in every course.", Index: 0, TotalChunks: 2, Size: 120, UploadedAt: uploaded},
		{ID: "a1", DocumentID: "doc-a", Source: "attendance.md", FileType: ".md", Content: "Condonation is granted for medical reasons.", Index: 1, TotalChunks: 2, Size: 120, UploadedAt: uploaded},
		{ID: "h0", DocumentID: "doc-h", Source: "hostel.txt", FileType: ".txt", Content: "Hostel gates close at 9 PM.", Index: 0, TotalChunks: 1, Size: 30, UploadedAt: uploaded},
	}
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_AddAndSearch(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, sampleChunks()))

	results, err := store.Search(ctx, "maintain attendance", 3)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	top := results[0].Chunk
	assert.Equal(t, "a0", top.ID)
	assert.Equal(t, "attendance.md", top.Source)
	assert.Equal(t, ".md", top.FileType)
	assert.Equal(t, 2, top.TotalChunks)
	assert.Equal(t, int64(120), top.Size)
	assert.True(t, top.UploadedAt.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
}

func TestSQLiteStore_NoMatch(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, sampleChunks()))

	results, err := store.Search(ctx, "quantum chromodynamics", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStore_DeleteBySource(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, sampleChunks()))

	n, err := store.DeleteBySource(ctx, "attendance.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.DeleteBySource(ctx, "attendance.md")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	results, _ := store.Search(ctx, "attendance", 10)
	assert.Empty(t, results)
}

func TestSQLiteStore_StatsAndList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, sampleChunks()))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.DocumentStats{
		TotalDocuments: 2,
		TotalChunks:    3,
		Sources:        []string{"attendance.md", "hostel.txt"},
	}, stats)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "attendance.md", docs[0].Name)
	assert.Equal(t, "doc-a", docs[0].ID)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.Equal(t, 1, docs[1].ChunkCount)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, sampleChunks()))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
}

func TestSQLiteStore_Clear(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, sampleChunks()))

	require.NoError(t, store.Clear(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalChunks)
}
