package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"telex/internal/services"
)

func init() {
	// pdfcpu otherwise materializes a config directory under the user's home.
	api.DisableConfigDir()
}

// Result is the text of one document.
type Result struct {
	Text  string
	Pages int
}

// Extractor defines the behaviour required by the extraction worker.
type Extractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

// Option configures the client.
type Option func(*Client)

// WithStrictValidation rejects documents that only pass pdfcpu's relaxed
// validation mode.
func WithStrictValidation() Option {
	return func(c *Client) {
		c.strict = true
	}
}

// Client extracts text using pdfcpu.
type Client struct {
	strict bool
}

// New constructs a pdfcpu-backed extractor.
func New(opts ...Option) *Client {
	client := &Client{}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Extract returns the concatenated text of every page in page order. A
// document with no pages yields an empty string. A missing file is reported
// as services.ErrNotFound; every other failure as services.ErrExtraction.
func (c *Client) Extract(ctx context.Context, path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, "extract", "open document", "document vanished", err)
		}
		return Result{}, services.Wrap(services.ErrExtraction, "extract", "open document", "", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if c.strict {
		conf.ValidationMode = model.ValidationStrict
	}

	pdfCtx, err := api.ReadContext(file, conf)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExtraction, "extract", "read document", "unreadable or corrupt PDF", err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return Result{}, services.Wrap(services.ErrExtraction, "extract", "validate document", "unreadable or corrupt PDF", err)
	}

	pages := pdfCtx.PageCount
	fonts := make(fontCache)
	var text strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, services.Wrap(services.ErrExtraction, "extract", "read page", "extraction cancelled", err)
		}
		pageText, err := extractPage(pdfCtx, page, fonts)
		if err != nil {
			return Result{}, services.Wrap(services.ErrExtraction, "extract", fmt.Sprintf("read page %d", page), "", err)
		}
		text.WriteString(pageText)
	}
	return Result{Text: text.String(), Pages: pages}, nil
}

func extractPage(pdfCtx *model.Context, page int, cache fontCache) (string, error) {
	pageDict, _, attrs, err := pdfCtx.PageDict(page, false)
	if err != nil {
		return "", err
	}
	content, err := pdfCtx.PageContent(pageDict, page)
	if errors.Is(err, model.ErrNoContent) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var resources types.Dict
	if attrs != nil {
		resources = attrs.Resources
	}
	return parseContent(content, pageFonts(pdfCtx.XRefTable, resources, cache)), nil
}
