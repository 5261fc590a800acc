package pdftext_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"telex/internal/services"
	"telex/internal/services/pdftext"
	"telex/internal/testsupport"
)

func TestExtractConcatenatesPagesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telegram.pdf")
	testsupport.WritePDF(t, path, "PAGE ONE\nURGENT", "PAGE TWO", "срочно")

	result, err := pdftext.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", result.Pages)
	}
	want := "PAGE ONE\nURGENT\nPAGE TWO\nсрочно\n"
	if result.Text != want {
		t.Fatalf("unexpected text %q, want %q", result.Text, want)
	}
}

func TestExtractEmbeddedFontCyrillic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert.pdf")
	testsupport.WritePDF(t, path, "URGENT evacuation СРОЧНО")

	result, err := pdftext.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Text != "URGENT evacuation СРОЧНО\n" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestExtractCoreFontWinAnsi(t *testing.T) {
	data, err := testsupport.BuildCoreFontPDF("Café au lait – “quoted”")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	path := filepath.Join(t.TempDir(), "latin.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := pdftext.New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(result.Text, "Café") || !strings.Contains(result.Text, "“quoted”") {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestExtractDoesNotModifySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.pdf")
	testsupport.WritePDF(t, path, "body")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := pdftext.New().Extract(context.Background(), path); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("source should still exist: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("source document was modified")
	}
}

func TestExtractCorruptDocumentIsExtractionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nthis is not a pdf body"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := pdftext.New().Extract(context.Background(), path)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestExtractMissingDocumentIsNotFound(t *testing.T) {
	_, err := pdftext.New().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
