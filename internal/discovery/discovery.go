// Package discovery runs the curriculum discovery pipeline: official
// documents, curriculum structure, OER source search, vetting, and the final
// curriculum map.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-curator/internal/agent"
	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/job"
	"github.com/p-n-ai/pai-curator/internal/knownsource"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Config holds the vetting thresholds for a discovery run.
type Config struct {
	MinTotalScore   int
	MinLicenseScore int
}

// Result is the outcome of one discovery run. A failed run carries the
// error message instead of a map.
type Result struct {
	Success           bool            `json:"success"`
	Map               *curriculum.Map `json:"curriculum_map,omitempty"`
	SourcesDiscovered int             `json:"sources_discovered"`
	SourcesVetted     int             `json:"sources_vetted"`
	DurationSeconds   float64         `json:"duration_seconds"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// Service orchestrates discovery runs.
type Service struct {
	oracle  agent.Oracle
	matcher *knownsource.Matcher
	sources source.Store
	tracker *job.Tracker
	cfg     Config

	// Pause between per-topic agent searches so the browser service is not
	// hammered. Zeroed in tests.
	searchDelay time.Duration
}

// NewService creates a discovery service. Discovery always needs the oracle
// for documents and structure; the known-source cache only replaces the
// per-topic source search.
func NewService(oracle agent.Oracle, matcher *knownsource.Matcher, sources source.Store, tracker *job.Tracker, cfg Config) *Service {
	return &Service{
		oracle:      oracle,
		matcher:     matcher,
		sources:     sources,
		tracker:     tracker,
		cfg:         cfg,
		searchDelay: time.Second,
	}
}

// Run executes the discovery pipeline for one request. Stage failures end
// the run; the result always reports what happened.
func (s *Service) Run(ctx context.Context, req curriculum.DiscoveryRequest) Result {
	start := time.Now()
	req.Language = curriculum.NormalizeLanguage(req.Language)

	jobID := s.tracker.Start(ctx, job.TypeCurriculumDiscovery, map[string]any{
		"country":  req.Country,
		"region":   req.Region,
		"grade":    req.Grade,
		"subject":  req.Subject,
		"language": req.Language,
	})

	slog.Info("starting curriculum discovery",
		"job_id", jobID, "subject", req.Subject, "grade", req.Grade)

	result, err := s.run(ctx, jobID, req)
	duration := time.Since(start).Seconds()
	result.DurationSeconds = duration

	if err != nil {
		slog.Error("curriculum discovery failed", "job_id", jobID, "error", err)
		s.tracker.Complete(ctx, jobID, false, map[string]any{}, err.Error())
		return Result{Success: false, ErrorMessage: err.Error(), DurationSeconds: duration}
	}

	s.tracker.Complete(ctx, jobID, true, map[string]any{
		"curriculum_id":        result.Map.CurriculumID,
		"total_topics":         result.Map.Statistics.TotalTopics,
		"total_objectives":     result.Map.Statistics.TotalObjectives,
		"sources_discovered":   result.SourcesDiscovered,
		"sources_vetted":       result.SourcesVetted,
		"average_source_score": result.Map.Statistics.AverageScore,
	}, "")

	slog.Info("curriculum discovery complete",
		"job_id", jobID,
		"sources_vetted", result.SourcesVetted,
		"duration_seconds", duration)
	return result
}

func (s *Service) run(ctx context.Context, jobID string, req curriculum.DiscoveryRequest) (Result, error) {
	docs, topics, err := s.discoverStructure(ctx, jobID, req)
	if err != nil {
		return Result{}, err
	}

	discovered, err := s.searchSources(ctx, jobID, topics, req)
	if err != nil {
		return Result{}, err
	}

	vetted := source.FilterVetted(discovered, s.cfg.MinTotalScore, s.cfg.MinLicenseScore)
	s.tracker.SourcesVetted(ctx, jobID, len(discovered), vetted)

	curriculumID := curriculum.ID(req)
	if err := s.saveRecords(ctx, curriculumID, vetted); err != nil {
		return Result{}, err
	}

	m := &curriculum.Map{
		CurriculumID: curriculumID,
		Request:      req,
		Documents:    docs,
		Topics:       topics,
		Statistics: curriculum.Statistics{
			TotalTopics:       len(topics),
			TotalObjectives:   curriculum.CountObjectives(topics),
			SourcesDiscovered: len(discovered),
			SourcesVetted:     len(vetted),
			AverageScore:      averageScore(vetted),
		},
		GeneratedAt: time.Now().UTC(),
	}

	return Result{
		Success:           true,
		Map:               m,
		SourcesDiscovered: len(discovered),
		SourcesVetted:     len(vetted),
	}, nil
}

// discoverStructure runs the two agent stages that establish what the
// curriculum contains.
func (s *Service) discoverStructure(ctx context.Context, jobID string, req curriculum.DiscoveryRequest) ([]curriculum.OfficialDocument, []curriculum.Topic, error) {
	if s.oracle == nil {
		return nil, nil, fmt.Errorf("browser agent not configured")
	}

	docs, err := s.oracle.DiscoverDocuments(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("no official curriculum documents found")
	}
	s.tracker.DocumentsFound(ctx, jobID, docs)

	// The first document is the most authoritative; structure comes from it.
	topics, err := s.oracle.ExtractTopics(ctx, docs[0], req)
	if err != nil {
		return nil, nil, err
	}
	if len(topics) == 0 {
		return nil, nil, fmt.Errorf("failed to extract curriculum structure")
	}
	s.tracker.TopicsExtracted(ctx, jobID, topics)

	return docs, topics, nil
}

// searchSources finds one candidate source per topic, preferring the
// known-source cache over the much more expensive agent search.
func (s *Service) searchSources(ctx context.Context, jobID string, topics []curriculum.Topic, req curriculum.DiscoveryRequest) ([]source.DiscoveredSource, error) {
	cached, err := s.matcher.GetCachedSources(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(cached) > 0 {
		slog.Info("using cached known sources, skipping agent search", "count", len(cached))
		var out []source.DiscoveredSource
		for i, topic := range topics {
			if i >= len(cached) {
				break
			}
			src := cached[i]
			s.coverAndScore(&src, topic, topics)
			out = append(out, src)
			s.tracker.OERFound(ctx, jobID, topic.Name, src, true)
		}
		return out, nil
	}

	slog.Warn("no cached sources, falling back to agent search")

	var out []source.DiscoveredSource
	for i, topic := range topics {
		slog.Info("searching OER sources", "topic", topic.Name)

		src, err := s.oracle.SearchOER(ctx, topic, req)
		if err != nil {
			return nil, fmt.Errorf("oer search for %s: %w", topic.Name, err)
		}
		if src != nil {
			s.coverAndScore(src, topic, topics)
			out = append(out, *src)
			s.tracker.OERFound(ctx, jobID, topic.Name, *src, false)
		}

		if i < len(topics)-1 && s.searchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.searchDelay):
			}
		}
	}
	return out, nil
}

// coverAndScore assigns the topic's coverage to a source and scores it.
func (s *Service) coverAndScore(src *source.DiscoveredSource, topic curriculum.Topic, topics []curriculum.Topic) {
	src.TopicsCovered = []string{topic.ID}
	src.ObjectivesAddressed = topic.ObjectiveIDs()
	scoring := source.Score(*src, nil)
	src.Scoring = &scoring
	if src.DiscoveredAt.IsZero() {
		src.DiscoveredAt = time.Now().UTC()
	}
}

func (s *Service) saveRecords(ctx context.Context, curriculumID string, vetted []source.DiscoveredSource) error {
	for _, src := range vetted {
		rec := source.Record{
			ID:            source.NewID(),
			CurriculumID:  curriculumID,
			Title:         src.Title,
			URL:           src.URL,
			Publisher:     src.Publisher,
			Description:   src.Description,
			SourceType:    src.SourceType,
			License:       src.License,
			ContentFormat: src.ContentFormat,
			TopicIDs:      src.TopicsCovered,
			ObjectiveIDs:  src.ObjectivesAddressed,
			Scoring:       *src.Scoring,
			Vetted:        true,
			DiscoveredAt:  src.DiscoveredAt,
		}
		if err := s.sources.Create(ctx, rec); err != nil {
			return fmt.Errorf("save source record: %w", err)
		}
		slog.Info("saved source record", "source_id", rec.ID, "title", rec.Title)
	}
	return nil
}

func averageScore(vetted []source.DiscoveredSource) float64 {
	if len(vetted) == 0 {
		return 0
	}
	sum := 0
	for _, src := range vetted {
		sum += src.Scoring.Total
	}
	return float64(sum) / float64(len(vetted))
}
