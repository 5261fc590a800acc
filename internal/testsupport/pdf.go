package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"
)

const bodyFont = "goregular"

// WritePDF writes a PDF with one page per entry in pages. Lines within a page
// are separated by "\n". Text is set in an embedded TrueType font, so the
// file carries a ToUnicode map like most producer output does.
func WritePDF(t testing.TB, path string, pages ...string) {
	t.Helper()

	data, err := BuildPDF(pages...)
	if err != nil {
		t.Fatalf("build pdf %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// BuildPDF returns the bytes WritePDF would write.
func BuildPDF(pages ...string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddUTF8FontFromBytes(bodyFont, "", goregular.TTF)
	doc.SetFont(bodyFont, "", 12)
	writePages(doc, pages, func(s string) string { return s })
	return output(doc)
}

// BuildCoreFontPDF is BuildPDF with the standard Helvetica font and
// WinAnsiEncoding instead of an embedded font. Characters outside cp1252
// cannot be represented.
func BuildCoreFontPDF(pages ...string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	writePages(doc, pages, doc.UnicodeTranslatorFromDescriptor(""))
	return output(doc)
}

func writePages(doc *fpdf.Fpdf, pages []string, tr func(string) string) {
	doc.SetCompression(true)
	for _, page := range pages {
		doc.AddPage()
		for _, line := range strings.Split(page, "\n") {
			if line != "" {
				doc.Cell(0, 8, tr(line))
			}
			doc.Ln(8)
		}
	}
}

func output(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
