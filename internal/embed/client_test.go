package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient removes the pacing delays so tests run fast.
func newTestClient(apiKey string, opts ...Option) *Client {
	c := NewClient(apiKey, opts...)
	c.batchDelay = 0
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func embeddingsHandler(t *testing.T, dims int, failInput func(input []string) bool) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if failInput != nil && failInput(req.Input) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"rate limit"}}`)
			return
		}

		var resp embeddingsResponse
		resp.Data = make([]struct {
			Embedding []float32 `json:"embedding"`
		}, len(req.Input))
		for i := range resp.Data {
			resp.Data[i].Embedding = make([]float32, dims)
			resp.Data[i].Embedding[0] = 1
		}
		resp.Usage.TotalTokens = len(req.Input) * 5
		json.NewEncoder(w).Encode(resp)
	}
}

func TestClient_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 8, nil))
	defer srv.Close()

	c := newTestClient("test-key", WithBaseURL(srv.URL), WithDimensions(8), WithBatchSize(2))
	texts := []string{"alpha", "beta", "gamma"}

	vectors, usage, err := c.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 8 {
			t.Errorf("vector %d has %d dimensions, want 8", i, len(v))
		}
	}
	// Three texts with batch size 2 is two API calls.
	if usage.APICalls != 2 {
		t.Errorf("APICalls = %d, want 2", usage.APICalls)
	}
	if usage.TokensUsed != 15 {
		t.Errorf("TokensUsed = %d, want 15", usage.TokensUsed)
	}
	if usage.Degraded() {
		t.Error("Degraded() = true for a clean run")
	}
}

func TestClient_BatchFailureFallsBackOneByOne(t *testing.T) {
	srv := httptest.NewServer(embeddingsHandler(t, 4, func(input []string) bool {
		// Fail multi-text calls and every attempt at the poison text.
		if len(input) > 1 {
			return true
		}
		return input[0] == "poison"
	}))
	defer srv.Close()

	c := newTestClient("test-key", WithBaseURL(srv.URL), WithDimensions(4), WithBatchSize(3))
	vectors, usage, err := c.EmbedBatch(context.Background(), []string{"ok one", "poison", "ok two"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}

	if usage.ZeroVectorFallbacks != 1 {
		t.Errorf("ZeroVectorFallbacks = %d, want 1", usage.ZeroVectorFallbacks)
	}
	if !usage.Degraded() {
		t.Error("Degraded() = false after a zero-vector fallback")
	}
	for i, v := range vectors[1] {
		if v != 0 {
			t.Errorf("failed text vector[%d] = %v, want zero vector", i, v)
		}
	}
	if vectors[0][0] != 1 || vectors[2][0] != 1 {
		t.Error("surviving texts should keep their real vectors")
	}
}

func TestClient_RetriesBeforeGivingUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		embeddingsHandler(t, 4, nil)(w, r)
	}))
	defer srv.Close()

	c := newTestClient("test-key", WithBaseURL(srv.URL), WithDimensions(4))
	vec, usage, err := c.embedOne(context.Background(), "stubborn text")
	if err != nil {
		t.Fatalf("embedOne() error = %v, want success on third attempt", err)
	}
	if len(vec) != 4 {
		t.Errorf("got %d dimensions, want 4", len(vec))
	}
	if usage.APICalls != 1 {
		t.Errorf("APICalls = %d, want 1 (only the success counts)", usage.APICalls)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestClient_SendsAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		embeddingsHandler(t, 4, nil)(w, r)
	}))
	defer srv.Close()

	c := newTestClient("sk-secret", WithBaseURL(srv.URL), WithDimensions(4))
	if _, _, err := c.EmbedBatch(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if auth != "Bearer sk-secret" {
		t.Errorf("Authorization = %q, want Bearer sk-secret", auth)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  hello \n\n  world\t "); got != "hello world" {
		t.Errorf("CleanText() = %q, want collapsed whitespace", got)
	}

	long := strings.Repeat("a", maxTextChars+500)
	if got := CleanText(long); len(got) != maxTextChars {
		t.Errorf("len(CleanText(long)) = %d, want %d", len(got), maxTextChars)
	}
}

func TestUsage_CostUSD(t *testing.T) {
	u := Usage{TokensUsed: 1_000_000}
	if got := u.CostUSD(); got != 0.02 {
		t.Errorf("CostUSD() = %v, want 0.02", got)
	}

	var a Usage
	a.Add(Usage{APICalls: 2, TokensUsed: 100, ZeroVectorFallbacks: 1})
	a.Add(Usage{APICalls: 1, TokensUsed: 50})
	if a.APICalls != 3 || a.TokensUsed != 150 || a.ZeroVectorFallbacks != 1 {
		t.Errorf("Add() accumulated %+v", a)
	}
}
