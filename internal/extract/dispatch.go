package extract

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-curator/internal/source"
)

// Dispatcher selects the first extractor claiming a URL/format pair. The
// priority order is fixed: HTML, then PDF, then video.
type Dispatcher struct {
	extractors []Extractor
}

// NewDispatcher builds a dispatcher over the given extractors in priority
// order.
func NewDispatcher(extractors ...Extractor) *Dispatcher {
	return &Dispatcher{extractors: extractors}
}

// Select returns the first extractor that claims the pair, or an error when
// none does.
func (d *Dispatcher) Select(url string, format source.Format) (Extractor, error) {
	for _, e := range d.extractors {
		if e.CanExtract(url, format) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no extractor for format: %s", format)
}

// Extract selects and runs the extractor for the pair.
func (d *Dispatcher) Extract(ctx context.Context, url string, format source.Format, sourceID string) (*ExtractedContent, error) {
	e, err := d.Select(url, format)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, url, sourceID)
}
