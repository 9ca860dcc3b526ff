package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/config"
	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

func TestOpenDocumentStore(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []string{"memory", "sqlite", ""} {
		s, err := openDocumentStore(config.StorageConfig{DataDir: dir, DocumentStore: kind})
		require.NoError(t, err, kind)
		stats, err := s.Stats(context.Background())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalChunks)
	}

	_, err := openDocumentStore(config.StorageConfig{DataDir: dir, DocumentStore: "lancedb"})
	assert.Error(t, err)
}

func TestBuildApp_PrepareSeedsBothStores(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = dir
	cfg.Storage.DatabasePath = filepath.Join(dir, "college.db")
	cfg.Storage.DocumentStore = "memory"

	a, err := buildApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.prepare(ctx))

	dbStats, err := a.college.Stats(ctx)
	require.NoError(t, err)
	assert.Positive(t, dbStats.TotalRows)

	docStats, err := a.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, docStats.TotalDocuments)

	// Already seeded stores are left alone.
	require.NoError(t, a.prepare(ctx))
	again, err := a.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, docStats.TotalChunks, again.TotalChunks)
}

func TestPrintAnswer(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printAnswer(&buf, entities.ChatResult{
		Answer:         "Students need 75% attendance.",
		Sources:        []entities.Citation{{Type: entities.SourceTypeDocument, Name: "attendance_policy.md"}},
		ElapsedSeconds: 1.25,
	})

	out := buf.String()
	assert.Contains(t, out, "Students need 75% attendance.")
	assert.Contains(t, out, "[document] attendance_policy.md")
	assert.Contains(t, out, "(1.25s)")
}
