package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/adapters/college"
	"github.com/0xcro3dile/kluagent/internal/adapters/docstore"
	"github.com/0xcro3dile/kluagent/internal/adapters/llm"
	"github.com/0xcro3dile/kluagent/internal/adapters/loader"
	"github.com/0xcro3dile/kluagent/internal/adapters/parser"
	"github.com/0xcro3dile/kluagent/internal/config"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
	"github.com/0xcro3dile/kluagent/internal/domain/usecases"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	store    ports.DocumentStore
	college  *college.Database
	llm      llm.Service
	loader   ports.DocumentLoader
	ingest   *usecases.IngestUseCase
	router   *usecases.Router
	sessions *usecases.SessionStore
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var err error
	a.store, err = openDocumentStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a.college, err = college.Open(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	llmCfg := llm.Config{
		Provider:      cfg.LLM.Provider,
		OpenAIKey:     cfg.LLM.OpenAIKey,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
		OpenAIModel:   cfg.LLM.OpenAIModel,
		GoogleKey:     cfg.LLM.GoogleKey,
		GeminiModel:   cfg.LLM.GeminiModel,
		OllamaBaseURL: cfg.LLM.OllamaBaseURL,
		OllamaModel:   cfg.LLM.OllamaModel,
	}
	if !llmCfg.Configured() {
		logger.Warn("LLM credentials are not configured; answers will report the missing key",
			zap.String("provider", llmCfg.Provider))
	}
	a.llm, err = llm.New(llmCfg, llm.AnswerTemperature)
	if err != nil {
		return nil, err
	}
	sqlLLM, err := llm.New(llmCfg, llm.SQLTemperature)
	if err != nil {
		return nil, err
	}

	a.loader = loader.NewMultiLoader(parser.NewPDFServiceParser(cfg.Storage.PDFServiceURL))
	a.ingest = usecases.NewIngestUseCase(a.loader, a.store, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)

	a.router = usecases.NewRouter(
		usecases.NewKeywordClassifier(usecases.DefaultKeywordRules),
		usecases.NewDocumentSource(a.store),
		usecases.NewDatabaseSource(college.NewSQLAgent(a.college, sqlLLM, logger)),
		a.llm,
		usecases.RouterConfig{
			QueryTimeout:      cfg.Router.QueryTimeout,
			SourceTimeout:     cfg.Router.SourceTimeout,
			GenerationTimeout: cfg.Router.GenerationTimeout,
		},
		logger,
	)
	a.sessions = usecases.NewSessionStore(a.router, usecases.SessionStoreConfig{
		MaxSessions: cfg.Sessions.MaxSessions,
		TTL:         cfg.Sessions.TTL,
	}, logger)

	ok = true
	return a, nil
}

func openDocumentStore(cfg config.StorageConfig) (ports.DocumentStore, error) {
	switch cfg.DocumentStore {
	case "memory":
		s, err := docstore.NewSnapshotStore(filepath.Join(cfg.DataDir, "documents.json"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "", "sqlite":
		s, err := docstore.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
	}
}

// Close releases both databases.
func (a *app) Close() error {
	var errs []error
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.college != nil {
		errs = append(errs, a.college.Close())
	}
	return errors.Join(errs...)
}
