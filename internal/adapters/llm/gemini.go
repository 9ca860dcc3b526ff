package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// GeminiAdapter implements ports.LLMService with the Google GenAI SDK.
// The client is created on first use so a missing key never fails startup.
type GeminiAdapter struct {
	apiKey      string
	model       string
	temperature float32

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiAdapter creates a Gemini adapter.
func NewGeminiAdapter(apiKey, model string, temperature float32) *GeminiAdapter {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiAdapter{apiKey: apiKey, model: model, temperature: temperature}
}

func (a *GeminiAdapter) init(ctx context.Context) error {
	a.once.Do(func() {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  a.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			a.initErr = fmt.Errorf("creating GenAI client: %w", err)
			return
		}
		a.client = client
	})
	return a.initErr
}

// Generate runs one GenerateContent call with the system prompt as system instruction.
func (a *GeminiAdapter) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("gemini: %w", ports.ErrMissingCredentials)
	}
	if err := a.init(ctx); err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(a.temperature),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		[]*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

// classifyGeminiError maps authentication failures onto ErrMissingCredentials.
func classifyGeminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	if code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(strings.ToLower(err.Error()), "api key not valid") {
		return fmt.Errorf("gemini rejected API key: %v: %w", err, ports.ErrMissingCredentials)
	}
	return fmt.Errorf("gemini generate: %w", err)
}

// Model returns the configured model name.
func (a *GeminiAdapter) Model() string { return a.model }
