// Package loader provides document loading adapters.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := l.build(filepath.Base(path), data)
	doc.ID = generateDocID(path)
	doc.Path = path
	return doc, nil
}

// LoadBytes builds a text document from uploaded content.
func (l *TextLoader) LoadBytes(ctx context.Context, name string, data []byte) (*entities.Document, error) {
	doc := l.build(name, data)
	doc.ID = uuid.NewString()
	return doc, nil
}

func (l *TextLoader) build(name string, data []byte) *entities.Document {
	return &entities.Document{
		Name:       name,
		FileType:   strings.ToLower(filepath.Ext(name)),
		Content:    strings.ToValidUTF8(string(data), "�"),
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
	}
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader loads PDF documents through a DocumentParser.
type PDFLoader struct {
	parser ports.DocumentParser
}

// NewPDFLoader creates a PDF loader backed by parser.
func NewPDFLoader(parser ports.DocumentParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load reads and parses a PDF file.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := l.parse(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	doc.ID = generateDocID(path)
	doc.Path = path
	return doc, nil
}

// LoadBytes parses uploaded PDF content.
func (l *PDFLoader) LoadBytes(ctx context.Context, name string, data []byte) (*entities.Document, error) {
	doc, err := l.parse(ctx, name, data)
	if err != nil {
		return nil, err
	}
	doc.ID = uuid.NewString()
	return doc, nil
}

func (l *PDFLoader) parse(ctx context.Context, name string, data []byte) (*entities.Document, error) {
	text, err := l.parser.Parse(ctx, data, name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &entities.Document{
		Name:       name,
		FileType:   ".pdf",
		Content:    text,
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
	}, nil
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader combines multiple loaders.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader that handles text and, when parser is non-nil, PDF files.
func NewMultiLoader(parser ports.DocumentParser) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	m.register(NewTextLoader())
	if parser != nil {
		m.register(NewPDFLoader(parser))
	}
	return m
}

func (m *MultiLoader) register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[ext] = l
	}
}

func (m *MultiLoader) pick(name string) (ports.DocumentLoader, error) {
	ext := strings.ToLower(filepath.Ext(name))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%q: %w", ext, ports.ErrUnsupportedFileType)
	}
	return l, nil
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	l, err := m.pick(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}

// LoadBytes dispatches uploaded content by the extension of name.
func (m *MultiLoader) LoadBytes(ctx context.Context, name string, data []byte) (*entities.Document, error) {
	l, err := m.pick(name)
	if err != nil {
		return nil, err
	}
	return l.LoadBytes(ctx, name, data)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
