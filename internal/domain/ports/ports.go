// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, not on concrete implementations.
// Adapters implement these interfaces.
package ports

import (
	"context"
	"errors"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

var (
	// ErrMissingCredentials marks a generation backend without a usable API key.
	ErrMissingCredentials = errors.New("llm credentials not configured")

	// ErrDocumentNotFound is returned when no document matches an id or name.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnsupportedFileType is returned for uploads the loader cannot read.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrReadOnlyQuery is returned when a statement is not a single SELECT.
	ErrReadOnlyQuery = errors.New("only SELECT queries are allowed")
)

// LLMService generates text responses from a language model.
type LLMService interface {
	// Generate produces a completion for a system instruction and a user prompt.
	// Misconfiguration is reported as an error wrapping ErrMissingCredentials.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// DocumentStore persists document chunks and ranks them against free text.
type DocumentStore interface {
	// Add saves chunks, replacing chunks with the same ID.
	Add(ctx context.Context, chunks []entities.Chunk) error

	// Search returns at most k chunks ordered by descending relevance.
	Search(ctx context.Context, text string, k int) ([]entities.SearchResult, error)

	// DeleteBySource removes all chunks of a document and returns how many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (entities.DocumentStats, error)

	// ListDocuments returns one entry per ingested document.
	ListDocuments(ctx context.Context) ([]entities.DocumentInfo, error)
}

// StructuredQuerier answers natural-language questions from the relational store.
// Failures are reported in the returned answer, not as an error.
type StructuredQuerier interface {
	Query(ctx context.Context, question string) entities.StructuredAnswer
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// LoadBytes builds a document from uploaded content.
	LoadBytes(ctx context.Context, name string, data []byte) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// DocumentParser extracts text from binary document formats (PDF).
type DocumentParser interface {
	// Parse extracts text content from document bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf").
	SupportedFormats() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
