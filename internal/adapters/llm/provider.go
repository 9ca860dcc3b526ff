package llm

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Temperatures used by the assistant.
const (
	AnswerTemperature float32 = 0.3
	SQLTemperature    float32 = 0
)

// Config selects and configures a generation backend.
type Config struct {
	Provider      string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GoogleKey     string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string
}

// Service is an LLM adapter that can report its model.
type Service interface {
	ports.LLMService
	Model() string
}

// New builds the adapter for cfg.Provider at the given temperature.
// A missing key is not an error here; calls fail with ports.ErrMissingCredentials instead.
func New(cfg Config, temperature float32) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI, "":
		return NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, temperature), nil
	case ProviderGemini:
		return NewGeminiAdapter(cfg.GoogleKey, cfg.GeminiModel, temperature), nil
	case ProviderOllama:
		return NewOllamaLLMAdapter(cfg.OllamaBaseURL, cfg.OllamaModel, temperature), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want openai, gemini or ollama)", cfg.Provider)
	}
}

// Configured reports whether the selected provider has the credentials it needs.
func (c Config) Configured() bool {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case ProviderGemini:
		return c.GoogleKey != ""
	case ProviderOllama:
		return true
	default:
		return c.OpenAIKey != ""
	}
}
