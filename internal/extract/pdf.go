package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/p-n-ai/pai-curator/internal/source"
)

// Fast-mode cost ceiling: first pages only, truncated per page, with a hard
// cap on the concatenated result.
const (
	fastMaxPages     = 3
	fastMaxPageChars = 1000
	fastMaxTotal     = 15000
)

// PDF extraction modes, mirroring the chunker's thorough/fast duality.
const (
	PDFModeThorough = "thorough"
	PDFModeFast     = "fast"
)

// PDFExtractor downloads a PDF and extracts its plain text.
type PDFExtractor struct {
	client *http.Client
	mode   string
}

// NewPDFExtractor creates a PDF extractor in the given mode.
func NewPDFExtractor(client *http.Client, mode string) *PDFExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	if mode == "" {
		mode = PDFModeThorough
	}
	return &PDFExtractor{client: client, mode: mode}
}

// CanExtract claims declared PDFs and any URL ending in ".pdf" regardless of
// the declared format.
func (e *PDFExtractor) CanExtract(url string, format source.Format) bool {
	return source.Format(strings.ToUpper(string(format))) == source.FormatPDF ||
		strings.HasSuffix(strings.ToLower(url), ".pdf")
}

func (e *PDFExtractor) Extract(ctx context.Context, url, sourceID string) (*ExtractedContent, error) {
	data, err := e.download(ctx, url)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing pdf %s: %w", url, err)
	}

	var text string
	if e.mode == PDFModeFast {
		text = fastText(r)
	} else {
		text, err = fullText(r)
		if err != nil {
			return nil, fmt.Errorf("extracting pdf text from %s: %w", url, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text extracted from %s", url)
	}

	meta := map[string]string{
		"url":         url,
		"total_pages": strconv.Itoa(r.NumPage()),
		"format":      "PDF",
	}
	c := newContent(sourceID, text, "pdf-"+e.mode, meta)
	slog.Info("extracted pdf", "url", url, "pages", r.NumPage(), "words", c.WordCount)
	return c, nil
}

// download fetches the PDF bytes. Any non-200 status is a hard failure for
// this source.
func (e *PDFExtractor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading pdf %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading pdf %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading pdf body: %w", err)
	}
	return data, nil
}

func fullText(r *pdf.Reader) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// fastText reads at most the first three pages, truncating each page and
// capping the total. Page-level extraction errors are skipped rather than
// failing the whole document.
func fastText(r *pdf.Reader) string {
	var parts []string
	pages := r.NumPage()
	if pages > fastMaxPages {
		pages = fastMaxPages
	}

	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		parts = append(parts, truncateChars(text, fastMaxPageChars))
	}
	return truncateChars(strings.Join(parts, "\n\n"), fastMaxTotal)
}

func truncateChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
