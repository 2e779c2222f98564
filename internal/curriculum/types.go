// Package curriculum holds the curriculum structure types shared across the
// discovery and extraction pipelines.
package curriculum

import "time"

// DiscoveryRequest describes the curriculum a pipeline run should cover.
type DiscoveryRequest struct {
	Country  string `json:"country"`
	Region   string `json:"region,omitempty"`
	Grade    int    `json:"grade"`
	Subject  string `json:"subject"`
	Language string `json:"language"`
}

// OfficialDocument is an official curriculum document located by the agent.
type OfficialDocument struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Publisher string `json:"publisher"`
	Published string `json:"published,omitempty"`
	PDFURL    string `json:"pdf_url,omitempty"`
}

// Topic is one curriculum topic with its ordered learning objectives.
// Topics are created once by structure extraction and never mutated; sources
// and chunks reference them by ID.
type Topic struct {
	ID          string      `json:"topic_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Order       int         `json:"order"`
	Objectives  []Objective `json:"objectives"`
}

// Objective is a learning objective within a topic.
type Objective struct {
	ID          string   `json:"objective_id"`
	Description string   `json:"description"`
	Skills      []string `json:"skills,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// Map is the final artifact of a discovery run.
type Map struct {
	CurriculumID string             `json:"curriculum_id"`
	Request      DiscoveryRequest   `json:"request"`
	Documents    []OfficialDocument `json:"official_documents"`
	Topics       []Topic            `json:"topics"`
	Statistics   Statistics         `json:"statistics"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// Statistics summarizes a discovery run for the curriculum map.
type Statistics struct {
	TotalTopics       int     `json:"total_topics"`
	TotalObjectives   int     `json:"total_objectives"`
	SourcesDiscovered int     `json:"sources_discovered"`
	SourcesVetted     int     `json:"sources_vetted"`
	AverageScore      float64 `json:"average_source_score"`
}

// ObjectiveIDs returns the objective IDs of a topic in declared order.
func (t Topic) ObjectiveIDs() []string {
	ids := make([]string, len(t.Objectives))
	for i, o := range t.Objectives {
		ids[i] = o.ID
	}
	return ids
}

// CountObjectives sums objectives across topics.
func CountObjectives(topics []Topic) int {
	n := 0
	for _, t := range topics {
		n += len(t.Objectives)
	}
	return n
}
