// Package parser provides document parsing adapters.
// Clean Architecture: Adapter implementing ports.DocumentParser.
// PDF text extraction is delegated to an external HTTP service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PDFServiceParser implements ports.DocumentParser by posting PDF bytes to an extraction service.
type PDFServiceParser struct {
	serviceURL string
	client     *http.Client
}

// NewPDFServiceParser creates a parser for the service at serviceURL.
func NewPDFServiceParser(serviceURL string) *PDFServiceParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PDFServiceParser{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// parseResponse is the extraction service response format.
// Pages, when present, holds the text of each page in order.
type parseResponse struct {
	Text  string   `json:"text"`
	Pages []string `json:"page_texts,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Parse extracts text from PDF bytes. Per-page text is labeled "[Page N]".
func (p *PDFServiceParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("PDF parse error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	if len(result.Pages) == 0 {
		return cleanText(result.Text), nil
	}
	parts := make([]string, 0, len(result.Pages))
	for i, page := range result.Pages {
		if page = cleanText(page); page != "" {
			parts = append(parts, fmt.Sprintf("[Page %d]\n%s", i+1, page))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFServiceParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// IsServiceHealthy checks if the extraction service is running.
func (p *PDFServiceParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// cleanText removes control characters that PDF extraction leaves behind.
func cleanText(content string) string {
	var cleaned strings.Builder
	for _, r := range content {
		if r >= 32 && r != 127 || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
