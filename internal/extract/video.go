package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-curator/internal/source"
)

// VideoExtractor handles video sources behind a policy switch. Disabled (the
// cost-optimized default) it never claims anything; enabled it claims VIDEO
// formats and known video hosts and asks the agent for a transcript.
type VideoExtractor struct {
	enabled bool
	agent   PageReader
}

// NewVideoExtractor creates a video extractor. With enabled=false the
// extractor declines every source.
func NewVideoExtractor(enabled bool, agent PageReader) *VideoExtractor {
	return &VideoExtractor{enabled: enabled, agent: agent}
}

func (e *VideoExtractor) CanExtract(url string, format source.Format) bool {
	if !e.enabled {
		return false
	}
	if source.Format(strings.ToUpper(string(format))) == source.FormatVideo {
		return true
	}
	lower := strings.ToLower(url)
	return strings.Contains(lower, "youtube.com") || strings.Contains(lower, "vimeo.com")
}

func (e *VideoExtractor) Extract(ctx context.Context, url, sourceID string) (*ExtractedContent, error) {
	if !e.enabled {
		slog.Info("skipping video extraction", "url", url)
		return nil, fmt.Errorf("video extraction disabled")
	}
	if e.agent == nil {
		return nil, fmt.Errorf("video extraction requires the browser agent")
	}

	text, err := e.agent.ReadPage(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("reading video transcript from %s: %w", url, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no transcript extracted from %s", url)
	}
	return newContent(sourceID, text, "video-transcript", pageMeta(url)), nil
}
