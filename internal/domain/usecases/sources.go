package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

const (
	// KnowledgeBaseName is the citation name of the document source.
	KnowledgeBaseName = "Knowledge Base"
	// CollegeDatabaseName is the citation name of the structured-data source.
	CollegeDatabaseName = "College Database"

	documentTopK        = 3
	documentBodyMaxRune = 500
	documentSeparator   = "\n\n---\n\n"
)

// SourceStatus is the explicit outcome of one adapter call.
type SourceStatus int

const (
	// StatusEmpty means the source answered but had nothing relevant.
	StatusEmpty SourceStatus = iota
	// StatusFound means Evidence holds a non-empty body.
	StatusFound
	// StatusFailed means the source could not answer; Err says why.
	StatusFailed
)

func (s SourceStatus) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "empty"
	}
}

// SourceResult is what a source adapter hands to the router.
// Snippet is filled in by the router.
type SourceResult struct {
	Status   SourceStatus
	Evidence entities.EvidenceItem
	Err      error
}

// EvidenceSource is a knowledge source the router can consult.
type EvidenceSource interface {
	Retrieve(ctx context.Context, query string) SourceResult
}

// DocumentSource searches the document store for the top matches.
type DocumentSource struct {
	store ports.DocumentStore
	topK  int
}

// NewDocumentSource wraps a document store.
func NewDocumentSource(store ports.DocumentStore) *DocumentSource {
	return &DocumentSource{store: store, topK: documentTopK}
}

// Retrieve concatenates up to three truncated matches. No match is not a failure.
func (s *DocumentSource) Retrieve(ctx context.Context, query string) SourceResult {
	results, err := s.store.Search(ctx, query, s.topK)
	if err != nil {
		return SourceResult{Status: StatusFailed, Err: fmt.Errorf("searching documents: %w", err)}
	}
	if len(results) == 0 {
		return SourceResult{Status: StatusEmpty}
	}
	if len(results) > s.topK {
		results = results[:s.topK]
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		source := r.Chunk.Source
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[Source: %s]\n%s", source, truncateRunes(r.Chunk.Content, documentBodyMaxRune)))
	}

	return SourceResult{
		Status: StatusFound,
		Evidence: entities.EvidenceItem{
			SourceType: entities.SourceTypeDocument,
			SourceName: KnowledgeBaseName,
			Body:       strings.Join(parts, documentSeparator),
		},
	}
}

// DatabaseSource asks the structured-data capability once with the full question.
type DatabaseSource struct {
	querier ports.StructuredQuerier
}

// NewDatabaseSource wraps a structured-data querier.
func NewDatabaseSource(querier ports.StructuredQuerier) *DatabaseSource {
	return &DatabaseSource{querier: querier}
}

// Retrieve relies on the querier's success flag; the answer text is never inspected for failure words.
func (s *DatabaseSource) Retrieve(ctx context.Context, query string) SourceResult {
	ans := s.querier.Query(ctx, query)
	if !ans.Success {
		msg := ans.Error
		if msg == "" {
			msg = "unknown error"
		}
		return SourceResult{Status: StatusFailed, Err: errors.New("database query failed: " + msg)}
	}
	if strings.TrimSpace(ans.Answer) == "" {
		return SourceResult{Status: StatusEmpty}
	}
	return SourceResult{
		Status: StatusFound,
		Evidence: entities.EvidenceItem{
			SourceType: entities.SourceTypeDatabase,
			SourceName: CollegeDatabaseName,
			Body:       ans.Answer,
		},
	}
}

// truncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
