package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaLLM_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": "Hello there!",
			"done":     true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test-model", 0.3)
	resp, err := adapter.Generate(context.Background(), "be brief", "Hi")

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp != "Hello there!" {
		t.Errorf("unexpected response: %s", resp)
	}
	if got.System != "be brief" || got.Prompt != "Hi" || got.Model != "test-model" {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.Stream {
		t.Error("stream should be disabled")
	}
	if got.Options.Temperature != 0.3 {
		t.Errorf("unexpected temperature: %v", got.Options.Temperature)
	}
}

func TestOllamaLLM_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "test", 0)
	_, err := adapter.Generate(context.Background(), "", "test")

	if err == nil {
		t.Error("should error on 404")
	}
}

func TestOllamaLLM_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	adapter := NewOllamaLLMAdapter(server.URL, "missing", 0)
	_, err := adapter.Generate(context.Background(), "", "test")

	if err == nil {
		t.Error("should surface the error field")
	}
}

func TestOllamaLLM_DefaultValues(t *testing.T) {
	adapter := NewOllamaLLMAdapter("", "", 0)
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
	if adapter.Model() != "llama3.2" {
		t.Error("should default to llama3.2")
	}
}
