// Package extract turns a source URL into raw text through format-specific
// extractors selected by capability negotiation.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/p-n-ai/pai-curator/internal/source"
)

// ExtractedContent is the raw text pulled from one source. Transient: it is
// consumed by the chunker and never persisted as-is.
type ExtractedContent struct {
	SourceID    string            `json:"source_id"`
	RawText     string            `json:"raw_text"`
	WordCount   int               `json:"word_count"`
	Language    string            `json:"language"`
	Method      string            `json:"extraction_method"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	HasVisuals  bool              `json:"has_visuals"`
	VisualURLs  []string          `json:"visual_urls,omitempty"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// Extractor is one format-specific extraction strategy.
type Extractor interface {
	// CanExtract reports whether this extractor claims the URL/format pair.
	CanExtract(url string, format source.Format) bool
	// Extract pulls content from the URL. A nil result with an error means
	// extraction failed for this source; the pipeline treats that as
	// non-fatal.
	Extract(ctx context.Context, url, sourceID string) (*ExtractedContent, error)
}

func newContent(sourceID, rawText, method string, meta map[string]string) *ExtractedContent {
	return &ExtractedContent{
		SourceID:    sourceID,
		RawText:     rawText,
		WordCount:   len(strings.Fields(rawText)),
		Language:    DetectLanguage(rawText),
		Method:      method,
		Metadata:    meta,
		ExtractedAt: time.Now(),
	}
}
