package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/p-n-ai/pai-curator/internal/agent"
	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/job"
	"github.com/p-n-ai/pai-curator/internal/knownsource"
	"github.com/p-n-ai/pai-curator/internal/source"
)

var testRequest = curriculum.DiscoveryRequest{
	Country: "US",
	Region:  "California",
	Grade:   4,
	Subject: "Mathematics",
}

func testTopics() []curriculum.Topic {
	return []curriculum.Topic{
		{
			ID: "t1_operations", Name: "Operations", Order: 1,
			Objectives: []curriculum.Objective{
				{ID: "obj_t1_001"}, {ID: "obj_t1_002"}, {ID: "obj_t1_003"},
			},
		},
		{
			ID: "t2_fractions", Name: "Fractions", Order: 2,
			Objectives: []curriculum.Objective{
				{ID: "obj_t2_001"}, {ID: "obj_t2_002"},
			},
		},
	}
}

func testOracle() *agent.Mock {
	return &agent.Mock{
		Documents: []curriculum.OfficialDocument{
			{Title: "Mathematics Framework", URL: "https://cde.ca.gov/framework.pdf", Publisher: "CDE"},
		},
		Topics: testTopics(),
		SourcesByTopic: map[string]*source.DiscoveredSource{
			"t1_operations": {
				URL: "https://www.khanacademy.org/math/arithmetic", Title: "Arithmetic",
				Publisher: "Khan Academy", SourceType: source.TypeEducationalPlatform,
				License: source.LicenseCCBYNCSA, ContentFormat: source.FormatHTML,
			},
			"t2_fractions": {
				URL: "https://openstax.org/prealgebra", Title: "Prealgebra",
				Publisher: "OpenStax", SourceType: source.TypeUniversityOER,
				License: source.LicenseCCBY, ContentFormat: source.FormatPDF,
			},
		},
	}
}

func newTestService(oracle agent.Oracle, known knownsource.Store) (*Service, *source.MemoryStore, *job.MemoryStore) {
	sources := source.NewMemoryStore()
	jobs := job.NewMemoryStore()
	svc := NewService(oracle, knownsource.NewMatcher(known), sources, job.NewTracker(jobs),
		Config{MinTotalScore: 12, MinLicenseScore: 3})
	svc.searchDelay = 0
	return svc, sources, jobs
}

func TestRun_AgentSearch(t *testing.T) {
	oracle := testOracle()
	svc, sources, jobs := newTestService(oracle, knownsource.NewMemoryStore())

	res := svc.Run(context.Background(), testRequest)
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if oracle.SearchCalls != 2 {
		t.Errorf("SearchCalls = %d, want one per topic", oracle.SearchCalls)
	}
	if res.SourcesDiscovered != 2 || res.SourcesVetted != 2 {
		t.Errorf("discovered/vetted = %d/%d, want 2/2", res.SourcesDiscovered, res.SourcesVetted)
	}

	m := res.Map
	if m.CurriculumID != "cur_us_california_mathematics_grade4_v1" {
		t.Errorf("CurriculumID = %q", m.CurriculumID)
	}
	if m.Statistics.TotalTopics != 2 || m.Statistics.TotalObjectives != 5 {
		t.Errorf("Statistics = %+v", m.Statistics)
	}
	if m.Statistics.AverageScore <= 0 {
		t.Errorf("AverageScore = %v, want > 0", m.Statistics.AverageScore)
	}
	if m.Request.Language != "en" {
		t.Errorf("Language = %q, want normalized default en", m.Request.Language)
	}

	recs, err := sources.ListVetted(context.Background(), m.CurriculumID)
	if err != nil {
		t.Fatalf("ListVetted() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("persisted %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if !rec.Vetted || rec.ExtractionState != source.StatePending {
			t.Errorf("record = %+v", rec)
		}
		if len(rec.TopicIDs) != 1 {
			t.Errorf("TopicIDs = %v, want exactly one topic", rec.TopicIDs)
		}
	}

	jobList, _ := jobs.ListByType(context.Background(), job.TypeCurriculumDiscovery, 0)
	if len(jobList) != 1 || jobList[0].Status != job.StatusCompleted {
		t.Fatalf("job records = %+v", jobList)
	}
}

func TestRun_CachedSourcesSkipAgentSearch(t *testing.T) {
	known := knownsource.NewMemoryStore()
	if err := knownsource.Seed(context.Background(), known, ""); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	oracle := testOracle()
	svc, _, _ := newTestService(oracle, known)

	res := svc.Run(context.Background(), testRequest)
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if oracle.SearchCalls != 0 {
		t.Errorf("SearchCalls = %d, want 0 when cache hits", oracle.SearchCalls)
	}
	if res.SourcesDiscovered == 0 {
		t.Error("cached sources should be discovered")
	}
	// Cached sources are scored like any other source.
	if res.Map.Statistics.AverageScore <= 0 {
		t.Errorf("AverageScore = %v", res.Map.Statistics.AverageScore)
	}
}

func TestRun_OneCachedSourcePerTopic(t *testing.T) {
	known := knownsource.NewMemoryStore()
	// One cached entry, two topics: only the first topic gets a source.
	known.Create(context.Background(), knownsource.KnownSource{
		Key: "khan_academy_us", SourceName: "Khan Academy", Publisher: "Khan Academy",
		BaseURL: "https://www.khanacademy.org", Country: "US",
		Subjects: []string{"Mathematics"}, LicenseType: "CC-BY-NC-SA",
		ContentFormat: "html", IsActive: true,
	})

	svc, _, _ := newTestService(testOracle(), known)
	res := svc.Run(context.Background(), testRequest)
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if res.SourcesDiscovered != 1 {
		t.Errorf("SourcesDiscovered = %d, want 1 (fewer cached sources than topics)", res.SourcesDiscovered)
	}
}

func TestRun_NoDocuments(t *testing.T) {
	oracle := testOracle()
	oracle.Documents = nil
	svc, _, jobs := newTestService(oracle, knownsource.NewMemoryStore())

	res := svc.Run(context.Background(), testRequest)
	if res.Success {
		t.Fatal("Run() should fail without official documents")
	}
	if res.ErrorMessage != "no official curriculum documents found" {
		t.Errorf("ErrorMessage = %q", res.ErrorMessage)
	}

	jobList, _ := jobs.ListByType(context.Background(), job.TypeCurriculumDiscovery, 0)
	if len(jobList) != 1 || jobList[0].Status != job.StatusFailed {
		t.Errorf("job records = %+v", jobList)
	}
}

func TestRun_NoTopics(t *testing.T) {
	oracle := testOracle()
	oracle.Topics = nil
	svc, _, _ := newTestService(oracle, knownsource.NewMemoryStore())

	res := svc.Run(context.Background(), testRequest)
	if res.Success {
		t.Fatal("Run() should fail without curriculum structure")
	}
	if res.ErrorMessage != "failed to extract curriculum structure" {
		t.Errorf("ErrorMessage = %q", res.ErrorMessage)
	}
}

func TestRun_AgentFailure(t *testing.T) {
	oracle := testOracle()
	oracle.Err = fmt.Errorf("browser service unreachable")
	svc, _, _ := newTestService(oracle, knownsource.NewMemoryStore())

	res := svc.Run(context.Background(), testRequest)
	if res.Success {
		t.Fatal("Run() should fail when the agent fails")
	}
	if res.DurationSeconds < 0 {
		t.Errorf("DurationSeconds = %v", res.DurationSeconds)
	}
}

func TestRun_UnvettedSourcesNotPersisted(t *testing.T) {
	oracle := testOracle()
	// Proprietary license scores 0 and fails the license gate.
	oracle.SourcesByTopic["t1_operations"].License = source.LicenseProprietary
	oracle.SourcesByTopic["t2_fractions"].License = source.LicenseProprietary

	svc, sources, _ := newTestService(oracle, knownsource.NewMemoryStore())
	res := svc.Run(context.Background(), testRequest)
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.ErrorMessage)
	}
	if res.SourcesDiscovered != 2 || res.SourcesVetted != 0 {
		t.Errorf("discovered/vetted = %d/%d, want 2/0", res.SourcesDiscovered, res.SourcesVetted)
	}
	if res.Map.Statistics.AverageScore != 0 {
		t.Errorf("AverageScore = %v, want 0 with no vetted sources", res.Map.Statistics.AverageScore)
	}

	recs, _ := sources.ListByCurriculum(context.Background(), res.Map.CurriculumID)
	if len(recs) != 0 {
		t.Errorf("persisted %d records, want none", len(recs))
	}
}
