package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
	defaultBatchSize  = 100

	// OpenAI input limit is 8191 tokens, roughly 32k characters.
	maxTextChars = 30000

	retryAttempts = 3
)

// Client is an OpenAI-compatible embeddings API client.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	batchSize  int
	client     *http.Client

	batchDelay time.Duration
	backoff    func(attempt int) time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the OpenAI-compatible API.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithDimensions sets the embedding dimensionality.
func WithDimensions(d int) Option {
	return func(c *Client) { c.dimensions = d }
}

// WithBatchSize sets how many texts go into one API call.
func WithBatchSize(n int) Option {
	return func(c *Client) { c.batchSize = n }
}

// NewClient creates an embeddings client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		dimensions: defaultDimensions,
		batchSize:  defaultBatchSize,
		client:     http.DefaultClient,
		batchDelay: 500 * time.Millisecond,
		backoff: func(attempt int) time.Duration {
			// 2s, 4s, 8s capped at 10s.
			d := time.Duration(1<<attempt) * 2 * time.Second
			if d > 10*time.Second {
				d = 10 * time.Second
			}
			return d
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedBatch embeds texts in batches. A failed batch falls back to
// one-by-one generation, and a text that still fails after retries degrades
// to a zero vector, so the result always has one vector per input.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, Usage, error) {
	var usage Usage
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		cleaned := make([]string, len(batch))
		for i, t := range batch {
			cleaned[i] = CleanText(t)
		}

		vectors, tokens, err := c.call(ctx, cleaned)
		if err == nil {
			usage.APICalls++
			usage.TokensUsed += tokens
			out = append(out, vectors...)
		} else {
			slog.Warn("embedding batch failed, retrying one by one",
				"batch_start", start, "error", err)
			for _, text := range cleaned {
				vec, u, err := c.embedOne(ctx, text)
				usage.Add(u)
				if err != nil {
					if ctx.Err() != nil {
						return nil, usage, ctx.Err()
					}
					slog.Warn("using zero vector for failed embedding", "error", err)
					vec = make([]float32, c.dimensions)
					usage.ZeroVectorFallbacks++
				}
				out = append(out, vec)
			}
		}

		if end < len(texts) {
			select {
			case <-ctx.Done():
				return nil, usage, ctx.Err()
			case <-time.After(c.batchDelay):
			}
		}
	}
	return out, usage, nil
}

// embedOne embeds a single text with retry and exponential backoff.
func (c *Client) embedOne(ctx context.Context, text string) ([]float32, Usage, error) {
	var usage Usage
	var lastErr error

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, usage, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		vectors, tokens, err := c.call(ctx, []string{text})
		if err == nil && len(vectors) == 1 {
			usage.APICalls++
			usage.TokensUsed += tokens
			return vectors[0], usage, nil
		}
		if err == nil {
			err = fmt.Errorf("expected 1 embedding, got %d", len(vectors))
		}
		lastErr = err
	}
	return nil, usage, lastErr
}

func (c *Client) call(ctx context.Context, input []string) ([][]float32, int, error) {
	body, err := json.Marshal(embeddingsRequest{
		Model:      c.model,
		Input:      input,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("embeddings api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var er embeddingsResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, 0, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(er.Data) != len(input) {
		return nil, 0, fmt.Errorf("expected %d embeddings, got %d", len(input), len(er.Data))
	}

	out := make([][]float32, len(er.Data))
	for i, d := range er.Data {
		out[i] = d.Embedding
	}
	return out, er.Usage.TotalTokens, nil
}

// CleanText collapses whitespace and truncates over-long input before
// embedding.
func CleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxTextChars {
		slog.Warn("text truncated before embedding", "chars", maxTextChars)
		text = text[:maxTextChars]
	}
	return text
}
