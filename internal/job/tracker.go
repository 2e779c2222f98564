package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/embed"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Tracker records the stages of a pipeline run. Every method is best-effort:
// store failures are logged and swallowed so a broken job log cannot take
// down the run it describes.
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Start opens a job record and returns its ID.
func (t *Tracker) Start(ctx context.Context, typ Type, request map[string]any) string {
	id := NewID(typ)
	err := t.store.Create(ctx, Record{
		ID:      id,
		Type:    typ,
		Status:  StatusStarted,
		Request: request,
	})
	if err != nil {
		slog.Warn("job record not created", "job_id", id, "error", err)
	} else {
		slog.Info("job started", "job_id", id, "job_type", typ)
	}
	return id
}

// Complete closes a job record.
func (t *Tracker) Complete(ctx context.Context, id string, success bool, summary map[string]any, errMsg string) {
	status := StatusCompleted
	if !success {
		status = StatusFailed
	}
	if err := t.store.Complete(ctx, id, status, summary, errMsg); err != nil {
		slog.Warn("job record not completed", "job_id", id, "error", err)
		return
	}
	slog.Info("job finished", "job_id", id, "status", status)
}

func (t *Tracker) stage(ctx context.Context, id, name, status string, data map[string]any) {
	err := t.store.AppendStage(ctx, id, Stage{
		Name:      name,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		slog.Warn("job stage not recorded", "job_id", id, "stage", name, "error", err)
	}
}

// DocumentsFound records the document discovery stage.
func (t *Tracker) DocumentsFound(ctx context.Context, id string, docs []curriculum.OfficialDocument) {
	entries := make([]map[string]any, len(docs))
	for i, d := range docs {
		entries[i] = map[string]any{"title": d.Title, "url": d.URL, "publisher": d.Publisher}
	}
	t.stage(ctx, id, "document_discovery", StageCompleted, map[string]any{
		"count":     len(docs),
		"documents": entries,
	})
}

// TopicsExtracted records the structure extraction stage.
func (t *Tracker) TopicsExtracted(ctx context.Context, id string, topics []curriculum.Topic) {
	entries := make([]map[string]any, len(topics))
	for i, tp := range topics {
		entries[i] = map[string]any{
			"topic_id":         tp.ID,
			"name":             tp.Name,
			"objectives_count": len(tp.Objectives),
		}
	}
	t.stage(ctx, id, "topics_extraction", StageCompleted, map[string]any{
		"count":  len(topics),
		"topics": entries,
	})
}

// OERFound records one topic's source search. Each topic gets its own stage
// so a partial run shows exactly which topics were covered.
func (t *Tracker) OERFound(ctx context.Context, id, topicName string, src source.DiscoveredSource, cached bool) {
	name := "oer_search_" + strings.ToLower(strings.ReplaceAll(topicName, " ", "_"))
	t.stage(ctx, id, name, StageCompleted, map[string]any{
		"topic":         topicName,
		"sources_found": 1,
		"title":         src.Title,
		"url":           src.URL,
		"publisher":     src.Publisher,
		"cached":        cached,
	})
}

// SourcesVetted records the vetting stage.
func (t *Tracker) SourcesVetted(ctx context.Context, id string, total int, vetted []source.DiscoveredSource) {
	entries := make([]map[string]any, len(vetted))
	for i, src := range vetted {
		entry := map[string]any{"title": src.Title, "source_type": string(src.SourceType)}
		if src.Scoring != nil {
			entry["score"] = src.Scoring.Total
		}
		entries[i] = entry
	}
	t.stage(ctx, id, "source_vetting", StageCompleted, map[string]any{
		"total_sources":  total,
		"vetted_sources": len(vetted),
		"vetted_list":    entries,
	})
}

// SourceExtracted records one source's extraction outcome.
func (t *Tracker) SourceExtracted(ctx context.Context, id, sourceID, url string, chunks int, extractErr error) {
	status := StageCompleted
	data := map[string]any{
		"source_id":      sourceID,
		"source_url":     url,
		"success":        extractErr == nil,
		"chunks_created": chunks,
	}
	if extractErr != nil {
		status = StageFailed
		data["error"] = extractErr.Error()
	}
	t.stage(ctx, id, "extract_"+sourceID, status, data)
}

// EmbeddingsGenerated records the embedding stage with its usage counters.
func (t *Tracker) EmbeddingsGenerated(ctx context.Context, id string, chunks int, usage embed.Usage) {
	t.stage(ctx, id, "embedding_generation", StageCompleted, map[string]any{
		"chunks_processed":      chunks,
		"embeddings_generated":  chunks - usage.ZeroVectorFallbacks,
		"zero_vector_fallbacks": usage.ZeroVectorFallbacks,
		"api_calls":             usage.APICalls,
		"estimated_cost_usd":    fmt.Sprintf("%.6f", usage.CostUSD()),
	})
}
