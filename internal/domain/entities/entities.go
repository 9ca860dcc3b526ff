// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// SourceTag identifies a knowledge source category selected by the classifier.
type SourceTag int

const (
	SourceDocuments SourceTag = iota
	SourceDatabase
)

// String returns the tag name used in logs.
func (t SourceTag) String() string {
	switch t {
	case SourceDocuments:
		return "documents"
	case SourceDatabase:
		return "database"
	default:
		return "unknown"
	}
}

// SourceSelection is the non-empty set of tags chosen for one query.
// Tags are kept in canonical order: documents first, then database.
type SourceSelection []SourceTag

// Has reports whether the selection contains tag.
func (s SourceSelection) Has(tag SourceTag) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// SourceType is the kind of knowledge source that produced evidence.
type SourceType string

const (
	SourceTypeDocument SourceType = "document"
	SourceTypeDatabase SourceType = "database"
)

// EvidenceItem is a non-empty result retrieved from one knowledge source for one query.
type EvidenceItem struct {
	SourceType SourceType
	SourceName string
	Snippet    string
	Body       string
}

// Citation returns the user-facing pointer for this evidence.
func (e EvidenceItem) Citation() Citation {
	return Citation{Type: e.SourceType, Name: e.SourceName, Snippet: e.Snippet}
}

// Citation tells the end user which evidence contributed to an answer.
type Citation struct {
	Type    SourceType `json:"type"`
	Name    string     `json:"name"`
	Snippet string     `json:"snippet"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Sources   []Citation `json:"sources"`
	Timestamp time.Time  `json:"timestamp"`
}

// SessionSummary describes a session for listing.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ErrorKind distinguishes the failure classes surfaced by the router.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindCredentials ErrorKind = "credentials"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindTransient   ErrorKind = "transient"
)

// RouteResult is the structured outcome of routing one query.
// ErrorDetail is for logs only and must never be shown to the end user.
type RouteResult struct {
	Success     bool
	Answer      string
	Citations   []Citation
	ErrorKind   ErrorKind
	ErrorDetail string
}

// ChatResult is returned for every appended turn.
type ChatResult struct {
	Answer         string     `json:"answer"`
	Sources        []Citation `json:"sources"`
	SessionID      string     `json:"session_id"`
	ElapsedSeconds float64    `json:"response_time"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Document represents a source document (PDF, TXT, MD).
type Document struct {
	ID         string
	Name       string
	Path       string
	FileType   string
	Content    string
	Size       int64
	UploadedAt time.Time
}

// Chunk represents a piece of a document stored in the knowledge base.
type Chunk struct {
	ID          string
	DocumentID  string
	Source      string // document file name, used for citations and deletion
	FileType    string
	Content     string
	Index       int
	TotalChunks int
	Size        int64
	UploadedAt  time.Time
}

// SearchResult is a ranked chunk returned by the document store.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// DocumentInfo summarizes one ingested document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ChunkCount int       `json:"chunk_count"`
	UploadDate time.Time `json:"upload_date"`
}

// DocumentStats describes the document store contents.
type DocumentStats struct {
	TotalDocuments int      `json:"total_documents"`
	TotalChunks    int      `json:"total_chunks"`
	Sources        []string `json:"sources"`
}

// StructuredAnswer is the reply of the structured-data capability.
type StructuredAnswer struct {
	Success bool
	Answer  string
	Error   string
}

// TableStats is the row count of one database table.
type TableStats struct {
	TableName string `json:"table_name"`
	RowCount  int    `json:"row_count"`
}

// DatabaseStats describes the relational store contents.
type DatabaseStats struct {
	Tables    []TableStats `json:"tables"`
	TotalRows int          `json:"total_rows"`
}
