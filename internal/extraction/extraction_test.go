package extraction

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/p-n-ai/pai-curator/internal/chunk"
	"github.com/p-n-ai/pai-curator/internal/embed"
	"github.com/p-n-ai/pai-curator/internal/extract"
	"github.com/p-n-ai/pai-curator/internal/job"
	"github.com/p-n-ai/pai-curator/internal/source"
)

const lessonText = `A fraction represents a part of a whole quantity in mathematics lessons.

The numerator counts how many equal parts of the whole are taken here.

The denominator names how many equal parts the whole is divided into overall.`

// stubExtractor claims HTML and returns canned text.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) CanExtract(_ string, format source.Format) bool {
	return format == source.FormatHTML
}

func (s stubExtractor) Extract(_ context.Context, _ string, sourceID string) (*extract.ExtractedContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &extract.ExtractedContent{
		SourceID:    sourceID,
		RawText:     s.text,
		Method:      "stub",
		ExtractedAt: time.Now().UTC(),
	}, nil
}

func vettedRecord(id, curriculumID string, format source.Format) source.Record {
	return source.Record{
		ID:            id,
		CurriculumID:  curriculumID,
		Title:         "Fractions",
		URL:           "https://example.org/" + id,
		SourceType:    source.TypeEducationalPlatform,
		License:       source.LicenseCCBY,
		ContentFormat: format,
		TopicIDs:      []string{"t2_fractions"},
		ObjectiveIDs:  []string{"obj_t2_001", "obj_t2_002"},
		Scoring:       source.ScoringBreakdown{Total: 14, License: 5},
		Vetted:        true,
	}
}

func newTestService(t *testing.T, extractor extract.Extractor) (*Service, *source.MemoryStore, *chunk.MemoryStore, *job.MemoryStore) {
	t.Helper()
	sources := source.NewMemoryStore()
	chunks := chunk.NewMemoryStore()
	jobs := job.NewMemoryStore()

	svc := NewService(
		sources,
		chunks,
		extract.NewDispatcher(extractor),
		chunk.New(chunk.Config{Mode: chunk.ModeFast}),
		embed.NewMock(8),
		job.NewTracker(jobs),
		0,
	)
	return svc, sources, chunks, jobs
}

func TestRun_ExtractsAndPersists(t *testing.T) {
	ctx := context.Background()
	const curriculumID = "cur_us_mathematics_grade4_v1"

	svc, sources, chunks, jobs := newTestService(t, stubExtractor{text: lessonText})
	sources.Create(ctx, vettedRecord("src_aaa", curriculumID, source.FormatHTML))
	sources.Create(ctx, vettedRecord("src_bbb", curriculumID, source.FormatHTML))

	res := svc.Run(ctx, Request{CurriculumID: curriculumID})
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if res.SourcesProcessed != 2 || res.SourcesSuccessful != 2 {
		t.Errorf("processed/successful = %d/%d, want 2/2", res.SourcesProcessed, res.SourcesSuccessful)
	}
	if res.TotalChunks != 6 {
		t.Errorf("TotalChunks = %d, want 3 paragraphs per source", res.TotalChunks)
	}
	if res.Usage.APICalls != 2 {
		t.Errorf("Usage.APICalls = %d, want one batch per source", res.Usage.APICalls)
	}

	persisted, err := chunks.ListBySource(ctx, "src_aaa")
	if err != nil {
		t.Fatalf("ListBySource() error = %v", err)
	}
	if len(persisted) != 3 {
		t.Fatalf("persisted %d chunks, want 3", len(persisted))
	}
	for _, kc := range persisted {
		if kc.CurriculumID != curriculumID {
			t.Errorf("CurriculumID = %q", kc.CurriculumID)
		}
		if len(kc.Embedding) != 8 {
			t.Errorf("Embedding has %d dimensions, want 8", len(kc.Embedding))
		}
		if kc.TopicID != "t2_fractions" {
			t.Errorf("TopicID = %q", kc.TopicID)
		}
	}
	// Round-robin over the two objectives.
	if *persisted[0].ObjectiveID != "obj_t2_001" || *persisted[1].ObjectiveID != "obj_t2_002" {
		t.Errorf("objective assignment = %v, %v", *persisted[0].ObjectiveID, *persisted[1].ObjectiveID)
	}

	rec, _ := sources.Get(ctx, "src_aaa")
	if rec.ExtractionState != source.StateExtracted || len(rec.ChunkIDs) != 3 {
		t.Errorf("source record after run = %+v", rec)
	}

	jobList, _ := jobs.ListByType(ctx, job.TypeContentExtraction, 0)
	if len(jobList) != 1 || jobList[0].Status != job.StatusCompleted {
		t.Fatalf("job records = %+v", jobList)
	}
	last := jobList[0].Stages[len(jobList[0].Stages)-1]
	if last.Name != "embedding_generation" {
		t.Errorf("last stage = %q, want embedding_generation", last.Name)
	}
}

func TestRun_PerSourceFailureIsolation(t *testing.T) {
	ctx := context.Background()
	const curriculumID = "cur_us_mathematics_grade4_v1"

	// The stub only claims HTML, so the VIDEO source has no extractor.
	svc, sources, _, _ := newTestService(t, stubExtractor{text: lessonText})
	sources.Create(ctx, vettedRecord("src_html", curriculumID, source.FormatHTML))
	sources.Create(ctx, vettedRecord("src_video", curriculumID, source.FormatVideo))

	res := svc.Run(ctx, Request{CurriculumID: curriculumID})
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if res.SourcesSuccessful != 1 {
		t.Errorf("SourcesSuccessful = %d, want 1", res.SourcesSuccessful)
	}

	var failed SourceResult
	for _, sr := range res.Sources {
		if sr.SourceID == "src_video" {
			failed = sr
		}
	}
	if failed.Success {
		t.Fatal("video source should fail")
	}
	if !strings.Contains(failed.ErrorMessage, "no extractor for format: VIDEO") {
		t.Errorf("ErrorMessage = %q", failed.ErrorMessage)
	}

	rec, _ := sources.Get(ctx, "src_video")
	if rec.ExtractionState != source.StateFailed {
		t.Errorf("ExtractionState = %q, want failed", rec.ExtractionState)
	}
}

func TestRun_ExtractorErrorReported(t *testing.T) {
	ctx := context.Background()
	const curriculumID = "cur_us_mathematics_grade4_v1"

	svc, sources, _, _ := newTestService(t, stubExtractor{err: fmt.Errorf("status 403")})
	sources.Create(ctx, vettedRecord("src_aaa", curriculumID, source.FormatHTML))

	res := svc.Run(ctx, Request{CurriculumID: curriculumID})
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if res.SourcesSuccessful != 0 {
		t.Errorf("SourcesSuccessful = %d, want 0", res.SourcesSuccessful)
	}
	if res.Sources[0].ErrorMessage != "content extraction failed" {
		t.Errorf("ErrorMessage = %q", res.Sources[0].ErrorMessage)
	}
}

func TestRun_ChunkingProducedNoResults(t *testing.T) {
	ctx := context.Background()
	const curriculumID = "cur_us_mathematics_grade4_v1"

	// Too short for even the fast-mode floor.
	svc, sources, _, _ := newTestService(t, stubExtractor{text: "Too short."})
	sources.Create(ctx, vettedRecord("src_aaa", curriculumID, source.FormatHTML))

	res := svc.Run(ctx, Request{CurriculumID: curriculumID})
	if res.Sources[0].Success {
		t.Fatal("source with unusable text should fail")
	}
	if res.Sources[0].ErrorMessage != "chunking produced no results" {
		t.Errorf("ErrorMessage = %q", res.Sources[0].ErrorMessage)
	}
}

func TestRun_NoSources(t *testing.T) {
	svc, _, _, jobs := newTestService(t, stubExtractor{text: lessonText})

	res := svc.Run(context.Background(), Request{CurriculumID: "cur_missing"})
	if res.Success {
		t.Fatal("Run() should fail with no sources")
	}
	if res.ErrorMessage != "no sources found for extraction" {
		t.Errorf("ErrorMessage = %q", res.ErrorMessage)
	}

	jobList, _ := jobs.ListByType(context.Background(), job.TypeContentExtraction, 0)
	if len(jobList) != 1 || jobList[0].Status != job.StatusFailed {
		t.Errorf("job records = %+v", jobList)
	}
}

func TestRun_SourceFilterAndLimit(t *testing.T) {
	ctx := context.Background()
	const curriculumID = "cur_us_mathematics_grade4_v1"

	svc, sources, _, _ := newTestService(t, stubExtractor{text: lessonText})
	for _, id := range []string{"src_1", "src_2", "src_3"} {
		sources.Create(ctx, vettedRecord(id, curriculumID, source.FormatHTML))
	}

	res := svc.Run(ctx, Request{CurriculumID: curriculumID, SourceIDs: []string{"src_1", "src_3"}})
	if res.SourcesProcessed != 2 {
		t.Errorf("SourcesProcessed = %d, want filter to 2", res.SourcesProcessed)
	}

	res = svc.Run(ctx, Request{CurriculumID: curriculumID, MaxSources: 1})
	if res.SourcesProcessed != 1 {
		t.Errorf("SourcesProcessed = %d, want limit 1", res.SourcesProcessed)
	}
}
