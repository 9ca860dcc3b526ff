// Package config loads the KLU Agent configuration from an optional YAML file,
// then applies environment overrides (including values loaded from .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLMConfig selects the generation provider. API keys are only read from the environment.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	OpenAIKey     string `yaml:"-"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
	GoogleKey     string `yaml:"-"`
	GeminiModel   string `yaml:"gemini_model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`
}

// StorageConfig locates the databases and the documents directory.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	DatabasePath  string `yaml:"database_path"`
	DocumentStore string `yaml:"document_store"` // sqlite | memory
	DocumentsDir  string `yaml:"documents_dir"`
	WatchDocs     bool   `yaml:"watch_documents"`
	PDFServiceURL string `yaml:"pdf_service_url"`
}

// RouterConfig bounds the time spent answering one query. Zero disables a bound.
type RouterConfig struct {
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	SourceTimeout     time.Duration `yaml:"source_timeout"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
}

// SessionConfig is the chat session lifecycle policy. Zero disables a limit.
type SessionConfig struct {
	MaxSessions     int           `yaml:"max_sessions"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// IngestConfig controls document chunking.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
	Debug bool   `yaml:"debug"`
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	LLM      LLMConfig     `yaml:"llm"`
	Storage  StorageConfig `yaml:"storage"`
	Router   RouterConfig  `yaml:"router"`
	Sessions SessionConfig `yaml:"sessions"`
	Ingest   IngestConfig  `yaml:"ingest"`
	Log      LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  20 << 20,
		},
		LLM: LLMConfig{
			Provider:      "openai",
			OpenAIBaseURL: "https://api.openai.com/v1",
			OpenAIModel:   "gpt-3.5-turbo",
			GeminiModel:   "gemini-1.5-flash",
			OllamaBaseURL: "http://localhost:11434",
			OllamaModel:   "llama3.2",
		},
		Storage: StorageConfig{
			DataDir:       "./data",
			DatabasePath:  "./data/college.db",
			DocumentStore: "sqlite",
			DocumentsDir:  "./data/documents",
			PDFServiceURL: "http://localhost:8081",
		},
		Router: RouterConfig{
			QueryTimeout:      60 * time.Second,
			SourceTimeout:     30 * time.Second,
			GenerationTimeout: 45 * time.Second,
		},
		Sessions: SessionConfig{
			MaxSessions:     1000,
			TTL:             24 * time.Hour,
			CleanupInterval: time.Minute,
		},
		Ingest: IngestConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (missing or empty path means defaults),
// loads .env if present and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}
	applyConfigDefaults(cfg)

	_ = godotenv.Load()
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyConfigDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = def.Storage.DataDir
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = def.Storage.DatabasePath
	}
	if cfg.Storage.DocumentStore == "" {
		cfg.Storage.DocumentStore = def.Storage.DocumentStore
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = def.Ingest.ChunkSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// applyEnv overrides cfg from the environment variables the deployment uses.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("OPENAI_API_KEY", &cfg.LLM.OpenAIKey)
	str("OPENAI_BASE_URL", &cfg.LLM.OpenAIBaseURL)
	str("OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	str("GOOGLE_API_KEY", &cfg.LLM.GoogleKey)
	str("GEMINI_MODEL", &cfg.LLM.GeminiModel)
	str("OLLAMA_BASE_URL", &cfg.LLM.OllamaBaseURL)
	str("OLLAMA_MODEL", &cfg.LLM.OllamaModel)
	str("DATABASE_PATH", &cfg.Storage.DatabasePath)
	str("DATA_DIR", &cfg.Storage.DataDir)
	str("DOCUMENTS_DIR", &cfg.Storage.DocumentsDir)
	str("PDF_SERVICE_URL", &cfg.Storage.PDFServiceURL)
	str("HOST", &cfg.Server.Host)
	str("LOG_LEVEL", &cfg.Log.Level)

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		cfg.Log.Debug = debug
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	switch c.Storage.DocumentStore {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.document_store: unknown store %q", c.Storage.DocumentStore)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap: must be in [0, chunk_size)")
	}
	for name, d := range map[string]time.Duration{
		"router.query_timeout":      c.Router.QueryTimeout,
		"router.source_timeout":     c.Router.SourceTimeout,
		"router.generation_timeout": c.Router.GenerationTimeout,
		"sessions.ttl":              c.Sessions.TTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s: must not be negative", name)
		}
	}
	if c.Sessions.MaxSessions < 0 {
		return fmt.Errorf("sessions.max_sessions: must not be negative")
	}
	return nil
}
