package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/p-n-ai/pai-curator/internal/source"
)

// maxHTMLBody bounds how much of a page body is parsed.
const maxHTMLBody = 4 << 20

// PageReader is the browser-agent capability the HTML extractor prefers: it
// navigates the page and returns the main educational text.
type PageReader interface {
	ReadPage(ctx context.Context, pageURL string) (string, error)
}

// HTMLExtractor extracts text from HTML pages. With an agent configured it
// delegates navigation and content isolation to the agent; without one it
// fetches the page directly and strips boilerplate itself.
type HTMLExtractor struct {
	agent  PageReader // nil means direct fetch only
	client *http.Client
}

// NewHTMLExtractor creates an HTML extractor. agent may be nil.
func NewHTMLExtractor(agent PageReader, client *http.Client) *HTMLExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLExtractor{agent: agent, client: client}
}

// CanExtract claims HTML-ish formats, including UNKNOWN as the catch-all.
func (e *HTMLExtractor) CanExtract(_ string, format source.Format) bool {
	switch source.Format(strings.ToUpper(string(format))) {
	case source.FormatHTML, source.FormatURL, source.FormatInteractive, source.FormatUnknown, "":
		return true
	default:
		return false
	}
}

func (e *HTMLExtractor) Extract(ctx context.Context, pageURL, sourceID string) (*ExtractedContent, error) {
	if e.agent != nil {
		text, err := e.agent.ReadPage(ctx, pageURL)
		if err == nil && strings.TrimSpace(text) != "" {
			return newContent(sourceID, text, "browser-agent", pageMeta(pageURL)), nil
		}
		if err != nil {
			slog.Warn("agent page read failed, falling back to direct fetch",
				"url", pageURL, "error", err)
		}
	}

	text, err := e.fetchDirect(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no content extracted from %s", pageURL)
	}
	return newContent(sourceID, text, "direct-fetch", pageMeta(pageURL)), nil
}

// fetchDirect downloads the page and pulls text from the main content area,
// preferring <main>/<article> over the whole document.
func (e *HTMLExtractor) fetchDirect(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(http.MaxBytesReader(nil, resp.Body, maxHTMLBody))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var b strings.Builder
	sel.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			b.WriteString(t)
			b.WriteString("\n\n")
		}
	})
	return strings.TrimSpace(b.String()), nil
}

func pageMeta(pageURL string) map[string]string {
	meta := map[string]string{"url": pageURL}
	if u, err := url.Parse(pageURL); err == nil {
		meta["domain"] = u.Host
	}
	return meta
}
