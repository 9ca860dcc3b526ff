// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// uploadExtensions are the file types accepted by POST /api/documents/upload.
var uploadExtensions = []string{".pdf", ".txt", ".md"}

// maxChatBodyBytes caps a POST /api/chat request body.
const maxChatBodyBytes = 1 << 20

// ChatService is the session-aware chat surface.
type ChatService interface {
	AppendTurn(ctx context.Context, sessionID, text string) entities.ChatResult
	GetHistory(sessionID string) ([]entities.ChatMessage, bool)
	ClearHistory(sessionID string) bool
	ListSessions() []entities.SessionSummary
}

// DocumentService manages the knowledge base contents.
type DocumentService interface {
	IngestBytes(ctx context.Context, name string, data []byte) (entities.DocumentInfo, error)
	Delete(ctx context.Context, idOrName string) (string, int, error)
	SeedFS(ctx context.Context, fsys fs.FS) ([]string, error)
}

// CollegeDatabase is the relational store as seen by the admin endpoints.
type CollegeDatabase interface {
	Stats(ctx context.Context) (entities.DatabaseStats, error)
	Ping(ctx context.Context) error
}

// Dependencies are the services the API is built on.
type Dependencies struct {
	Chat        ChatService
	Documents   DocumentService
	Store       ports.DocumentStore
	Database    CollegeDatabase
	SampleDocs  fs.FS // nil disables POST /api/admin/seed-documents
	LLMProvider string
	LLMModel    string
}

// Config holds listener settings.
type Config struct {
	Addr            string
	Version         string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	WriteTimeout    time.Duration
}

// Server is the HTTP server for the KLU Agent API.
type Server struct {
	deps    Dependencies
	cfg     Config
	logger  *zap.Logger
	started time.Time
	now     func() time.Time
}

// NewServer creates a new HTTP server.
func NewServer(deps Dependencies, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	return &Server{
		deps:    deps,
		cfg:     cfg,
		logger:  logger.Named("http"),
		started: time.Now(),
		now:     time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/health/ready", s.handleReady)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/history/{id}", s.handleGetHistory)
	mux.HandleFunc("DELETE /api/chat/history/{id}", s.handleClearHistory)
	mux.HandleFunc("GET /api/chat/sessions", s.handleListSessions)

	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("GET /api/documents/stats", s.handleDocumentStats)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)

	mux.HandleFunc("GET /api/admin/db-stats", s.handleDBStats)
	mux.HandleFunc("GET /api/admin/system-info", s.handleSystemInfo)
	mux.HandleFunc("POST /api/admin/seed-documents", s.handleSeedDocuments)

	return s.recoverMiddleware(s.corsMiddleware(s.loggingMiddleware(mux)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("KLU Agent server starting", zap.String("addr", s.cfg.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "KLU Agent API",
		"version": s.cfg.Version,
		"health":  "/api/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]bool{"database": false, "vector_store": false}
	if s.deps.Database != nil {
		checks["database"] = s.deps.Database.Ping(r.Context()) == nil
	}
	if s.deps.Store != nil {
		_, err := s.deps.Store.Stats(r.Context())
		checks["vector_store"] = err == nil
	}
	ready := checks["database"] && checks["vector_store"]

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	result := s.deps.Chat.AppendTurn(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages, ok := s.deps.Chat.GetHistory(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": messages})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.deps.Chat.ClearHistory(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Session %s cleared", id),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Chat.ListSessions())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListDocuments(r.Context())
	if err != nil {
		s.internalError(w, "Error listing documents", err)
		return
	}
	if docs == nil {
		docs = []entities.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, docs)
}

type uploadResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Document *entities.DocumentInfo `json:"document,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "A file is required in the \"file\" form field"})
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !allowedUpload(name) {
		writeJSON(w, http.StatusBadRequest, uploadResponse{
			Message: "Unsupported file type. Allowed: " + strings.Join(uploadExtensions, ", "),
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Error reading upload: " + err.Error()})
		return
	}

	info, err := s.deps.Documents.IngestBytes(r.Context(), name, data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ports.ErrUnsupportedFileType) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("upload failed", zap.String("name", name), zap.Error(err))
		writeJSON(w, status, uploadResponse{Message: "Error processing document: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("Successfully uploaded and processed %s", name),
		Document: &info,
	})
}

func allowedUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range uploadExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name, n, err := s.deps.Documents.Delete(r.Context(), id)
	if errors.Is(err, ports.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Document %s not found", id))
		return
	}
	if err != nil {
		s.internalError(w, "Error deleting document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Deleted %d chunks from %s", n, name),
	})
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.internalError(w, "Error getting stats", err)
		return
	}
	if stats.Sources == nil {
		stats.Sources = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDBStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Database.Stats(r.Context())
	if err != nil {
		s.internalError(w, "Error getting database stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type systemInfo struct {
	LLMProvider          string  `json:"llm_provider"`
	LLMModel             string  `json:"llm_model"`
	VectorStoreDocuments int     `json:"vector_store_documents"`
	VectorStoreChunks    int     `json:"vector_store_chunks"`
	DatabaseTables       int     `json:"database_tables"`
	UptimeSeconds        float64 `json:"uptime_seconds"`
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	docStats, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.internalError(w, "Error getting system info", err)
		return
	}
	dbStats, err := s.deps.Database.Stats(r.Context())
	if err != nil {
		s.internalError(w, "Error getting system info", err)
		return
	}

	uptime := s.now().Sub(s.started).Seconds()
	writeJSON(w, http.StatusOK, systemInfo{
		LLMProvider:          s.deps.LLMProvider,
		LLMModel:             s.deps.LLMModel,
		VectorStoreDocuments: docStats.TotalDocuments,
		VectorStoreChunks:    docStats.TotalChunks,
		DatabaseTables:       len(dbStats.Tables),
		UptimeSeconds:        math.Round(uptime*100) / 100,
	})
}

func (s *Server) handleSeedDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.SampleDocs == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Sample documents directory not found",
		})
		return
	}

	names, err := s.deps.Documents.SeedFS(r.Context(), s.deps.SampleDocs)
	if err != nil {
		s.internalError(w, "Error seeding documents", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Ingested %d documents", len(names)),
		"documents": names,
	})
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msg, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
