package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xcro3dile/kluagent/internal/domain/ports"
)

// stubParser implements ports.DocumentParser for testing
type stubParser struct {
	text string
	err  error
}

func (s *stubParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	return s.text, s.err
}

func (s *stubParser) SupportedFormats() []string { return []string{"pdf"} }

func TestTextLoader_LoadTxtFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	os.WriteFile(path, []byte("Hello World"), 0644)

	loader := NewTextLoader()
	doc, err := loader.Load(context.Background(), path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Content != "Hello World" {
		t.Errorf("unexpected content: %s", doc.Content)
	}
	if doc.Name != "test.txt" || doc.FileType != ".txt" {
		t.Errorf("unexpected name/type: %s %s", doc.Name, doc.FileType)
	}
	if doc.Size != 11 {
		t.Errorf("unexpected size: %d", doc.Size)
	}

	again, _ := loader.Load(context.Background(), path)
	if again.ID != doc.ID {
		t.Error("path-based IDs should be stable")
	}
}

func TestTextLoader_LoadBytes(t *testing.T) {
	loader := NewTextLoader()

	a, _ := loader.LoadBytes(context.Background(), "Rules.MD", []byte("# Rules"))
	b, _ := loader.LoadBytes(context.Background(), "Rules.MD", []byte("# Rules"))

	if a.FileType != ".md" {
		t.Errorf("unexpected type: %s", a.FileType)
	}
	if a.ID == b.ID {
		t.Error("uploads should get fresh IDs")
	}
	if a.UploadedAt.IsZero() {
		t.Error("upload time should be set")
	}
}

func TestTextLoader_InvalidUTF8(t *testing.T) {
	doc, _ := NewTextLoader().LoadBytes(context.Background(), "a.txt", []byte{'o', 'k', 0xff})

	if doc.Content != "ok�" {
		t.Errorf("unexpected content: %q", doc.Content)
	}
}

func TestPDFLoader_UsesParser(t *testing.T) {
	loader := NewPDFLoader(&stubParser{text: "[Page 1]\nHandbook"})

	doc, err := loader.LoadBytes(context.Background(), "handbook.pdf", []byte("%PDF"))

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Content != "[Page 1]\nHandbook" || doc.FileType != ".pdf" || doc.Size != 4 {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestPDFLoader_ParserError(t *testing.T) {
	loader := NewPDFLoader(&stubParser{err: errors.New("service down")})

	_, err := loader.LoadBytes(context.Background(), "handbook.pdf", []byte("%PDF"))

	if err == nil {
		t.Error("parser errors should propagate")
	}
}

func TestMultiLoader_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	txtPath := filepath.Join(dir, "test.txt")
	mdPath := filepath.Join(dir, "test.md")
	pdfPath := filepath.Join(dir, "test.pdf")
	os.WriteFile(txtPath, []byte("txt content"), 0644)
	os.WriteFile(mdPath, []byte("# Markdown"), 0644)
	os.WriteFile(pdfPath, []byte("%PDF"), 0644)

	loader := NewMultiLoader(&stubParser{text: "pdf text"})

	txt, _ := loader.Load(context.Background(), txtPath)
	md, _ := loader.Load(context.Background(), mdPath)
	pdf, _ := loader.Load(context.Background(), pdfPath)

	if txt.Content != "txt content" {
		t.Error("txt not loaded correctly")
	}
	if md.Content != "# Markdown" {
		t.Error("md not loaded correctly")
	}
	if pdf.Content != "pdf text" {
		t.Error("pdf not routed to parser")
	}
}

func TestMultiLoader_Unsupported(t *testing.T) {
	loader := NewMultiLoader(nil)

	_, err := loader.LoadBytes(context.Background(), "slides.pptx", []byte("x"))
	if !errors.Is(err, ports.ErrUnsupportedFileType) {
		t.Errorf("expected ErrUnsupportedFileType, got %v", err)
	}

	_, err = loader.LoadBytes(context.Background(), "a.pdf", []byte("x"))
	if !errors.Is(err, ports.ErrUnsupportedFileType) {
		t.Error("pdf should be unsupported without a parser")
	}
}

func TestMultiLoader_AllExtensions(t *testing.T) {
	exts := NewMultiLoader(&stubParser{}).SupportedExtensions()

	want := []string{".markdown", ".md", ".pdf", ".txt"}
	if len(exts) != len(want) {
		t.Fatalf("expected %v, got %v", want, exts)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("expected %v, got %v", want, exts)
		}
	}
}

func TestLoader_NonexistentFile(t *testing.T) {
	loader := NewTextLoader()
	_, err := loader.Load(context.Background(), "/nonexistent/file.txt")

	if err == nil {
		t.Error("should error on nonexistent file")
	}
}
