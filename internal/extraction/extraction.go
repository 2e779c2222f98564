// Package extraction runs the content extraction pipeline: vetted sources in,
// embedded knowledge chunks out. Sources are processed sequentially and a
// failing source never takes down the run.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-curator/internal/chunk"
	"github.com/p-n-ai/pai-curator/internal/embed"
	"github.com/p-n-ai/pai-curator/internal/extract"
	"github.com/p-n-ai/pai-curator/internal/job"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Request selects which sources of a curriculum to extract.
type Request struct {
	CurriculumID string   `json:"curriculum_id"`
	SourceIDs    []string `json:"source_ids,omitempty"` // empty means all vetted
	MaxSources   int      `json:"max_sources,omitempty"`
}

// SourceResult is the outcome of one source.
type SourceResult struct {
	SourceID        string  `json:"source_id"`
	Success         bool    `json:"success"`
	ChunksCreated   int     `json:"chunks_created"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Result is the outcome of one extraction run.
type Result struct {
	Success           bool           `json:"success"`
	CurriculumID      string         `json:"curriculum_id"`
	SourcesProcessed  int            `json:"sources_processed"`
	SourcesSuccessful int            `json:"sources_successful"`
	TotalChunks       int            `json:"total_chunks_created"`
	Usage             embed.Usage    `json:"embedding_usage"`
	Sources           []SourceResult `json:"extraction_results,omitempty"`
	DurationSeconds   float64        `json:"duration_seconds"`
	ErrorMessage      string         `json:"error_message,omitempty"`
}

// Service orchestrates extraction runs.
type Service struct {
	sources    source.Store
	chunks     chunk.Store
	dispatcher *extract.Dispatcher
	chunker    *chunk.Chunker
	embedder   embed.Embedder
	tracker    *job.Tracker

	// Pause between sources so upstream sites and the embedding API are not
	// hammered. Zeroed in tests.
	sourceDelay time.Duration
}

// NewService creates an extraction service.
func NewService(sources source.Store, chunks chunk.Store, dispatcher *extract.Dispatcher,
	chunker *chunk.Chunker, embedder embed.Embedder, tracker *job.Tracker, sourceDelay time.Duration) *Service {
	return &Service{
		sources:     sources,
		chunks:      chunks,
		dispatcher:  dispatcher,
		chunker:     chunker,
		embedder:    embedder,
		tracker:     tracker,
		sourceDelay: sourceDelay,
	}
}

// Run extracts content for the requested sources. Per-source failures are
// recorded in the result; only an empty source set fails the run itself.
func (s *Service) Run(ctx context.Context, req Request) Result {
	start := time.Now()

	jobID := s.tracker.Start(ctx, job.TypeContentExtraction, map[string]any{
		"curriculum_id": req.CurriculumID,
		"source_ids":    req.SourceIDs,
		"max_sources":   req.MaxSources,
	})

	slog.Info("starting content extraction", "job_id", jobID, "curriculum_id", req.CurriculumID)

	records, err := s.selectSources(ctx, req)
	if err == nil && len(records) == 0 {
		err = fmt.Errorf("no sources found for extraction")
	}
	if err != nil {
		slog.Error("content extraction failed", "job_id", jobID, "error", err)
		s.tracker.Complete(ctx, jobID, false, map[string]any{}, err.Error())
		return Result{
			Success:         false,
			CurriculumID:    req.CurriculumID,
			ErrorMessage:    err.Error(),
			DurationSeconds: time.Since(start).Seconds(),
		}
	}

	slog.Info("sources selected for extraction", "count", len(records))

	var results []SourceResult
	var usage embed.Usage
	totalChunks := 0
	successful := 0

	for i, rec := range records {
		slog.Info("processing source",
			"position", fmt.Sprintf("%d/%d", i+1, len(records)), "source_id", rec.ID)

		res, srcUsage := s.extractOne(ctx, rec)
		results = append(results, res)
		usage.Add(srcUsage)

		var stageErr error
		if !res.Success {
			stageErr = fmt.Errorf("%s", res.ErrorMessage)
		} else {
			successful++
			totalChunks += res.ChunksCreated
		}
		s.tracker.SourceExtracted(ctx, jobID, rec.ID, rec.URL, res.ChunksCreated, stageErr)

		if i < len(records)-1 && s.sourceDelay > 0 {
			select {
			case <-ctx.Done():
				s.tracker.Complete(ctx, jobID, false, map[string]any{}, ctx.Err().Error())
				return Result{
					Success:         false,
					CurriculumID:    req.CurriculumID,
					ErrorMessage:    ctx.Err().Error(),
					Sources:         results,
					DurationSeconds: time.Since(start).Seconds(),
				}
			case <-time.After(s.sourceDelay):
			}
		}
	}

	s.tracker.EmbeddingsGenerated(ctx, jobID, totalChunks, usage)
	s.tracker.Complete(ctx, jobID, true, map[string]any{
		"curriculum_id":        req.CurriculumID,
		"sources_processed":    len(records),
		"sources_successful":   successful,
		"total_chunks_created": totalChunks,
		"embedding_api_calls":  usage.APICalls,
		"estimated_cost_usd":   usage.CostUSD(),
	}, "")

	duration := time.Since(start).Seconds()
	slog.Info("content extraction complete",
		"job_id", jobID,
		"sources_successful", successful,
		"sources_processed", len(records),
		"total_chunks", totalChunks,
		"duration_seconds", duration)

	return Result{
		Success:           true,
		CurriculumID:      req.CurriculumID,
		SourcesProcessed:  len(records),
		SourcesSuccessful: successful,
		TotalChunks:       totalChunks,
		Usage:             usage,
		Sources:           results,
		DurationSeconds:   duration,
	}
}

// selectSources loads the vetted records and applies the request's ID filter
// and limit.
func (s *Service) selectSources(ctx context.Context, req Request) ([]source.Record, error) {
	records, err := s.sources.ListVetted(ctx, req.CurriculumID)
	if err != nil {
		return nil, fmt.Errorf("list vetted sources: %w", err)
	}

	if len(req.SourceIDs) > 0 {
		wanted := make(map[string]bool, len(req.SourceIDs))
		for _, id := range req.SourceIDs {
			wanted[id] = true
		}
		filtered := records[:0]
		for _, rec := range records {
			if wanted[rec.ID] {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	if req.MaxSources > 0 && len(records) > req.MaxSources {
		records = records[:req.MaxSources]
	}
	return records, nil
}

// extractOne runs extract, chunk, embed and persist for a single source. Any
// failure is converted into the result; the back-reference on the source
// record always reflects the outcome.
func (s *Service) extractOne(ctx context.Context, rec source.Record) (SourceResult, embed.Usage) {
	start := time.Now()
	fail := func(msg string) (SourceResult, embed.Usage) {
		s.markFailed(ctx, rec.ID)
		return SourceResult{
			SourceID:        rec.ID,
			Success:         false,
			ErrorMessage:    msg,
			DurationSeconds: time.Since(start).Seconds(),
		}, embed.Usage{}
	}

	extractor, err := s.dispatcher.Select(rec.URL, rec.ContentFormat)
	if err != nil {
		slog.Warn("no extractor for source", "source_id", rec.ID, "format", rec.ContentFormat)
		return fail(err.Error())
	}

	extracted, err := extractor.Extract(ctx, rec.URL, rec.ID)
	if err != nil {
		slog.Warn("extraction failed", "source_id", rec.ID, "url", rec.URL, "error", err)
		return fail("content extraction failed")
	}

	topicID := "unknown"
	if len(rec.TopicIDs) > 0 {
		topicID = rec.TopicIDs[0]
	}
	chunks := s.chunker.Chunk(extracted.RawText, rec.ID, topicID, rec.ObjectiveIDs)
	if len(chunks) == 0 {
		slog.Warn("no chunks created", "source_id", rec.ID)
		return fail("chunking produced no results")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, usage, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("embedding failed", "source_id", rec.ID, "error", err)
		res, _ := fail("embedding generation failed")
		return res, usage
	}

	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		kc := chunk.KnowledgeChunk{
			Chunk:        c,
			CurriculumID: rec.CurriculumID,
			SourceURL:    rec.URL,
			Embedding:    vectors[i],
			CreatedAt:    extracted.ExtractedAt,
		}
		if err := s.chunks.Create(ctx, kc); err != nil {
			slog.Warn("chunk not persisted", "chunk_id", c.ID, "error", err)
			res, _ := fail("persisting chunks failed")
			return res, usage
		}
		chunkIDs[i] = c.ID
	}

	if err := s.sources.SetChunkRefs(ctx, rec.ID, chunkIDs, source.StateExtracted); err != nil {
		slog.Warn("chunk refs not set", "source_id", rec.ID, "error", err)
	}

	duration := time.Since(start).Seconds()
	slog.Info("source extracted",
		"source_id", rec.ID, "chunks", len(chunks), "method", extracted.Method,
		"duration_seconds", duration)

	return SourceResult{
		SourceID:        rec.ID,
		Success:         true,
		ChunksCreated:   len(chunks),
		DurationSeconds: duration,
	}, usage
}

func (s *Service) markFailed(ctx context.Context, sourceID string) {
	if err := s.sources.SetChunkRefs(ctx, sourceID, nil, source.StateFailed); err != nil {
		slog.Warn("extraction state not recorded", "source_id", sourceID, "error", err)
	}
}
