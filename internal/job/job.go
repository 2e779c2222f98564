// Package job records pipeline runs and their stages so operators can see
// what a run did after the fact. Recording is best-effort: a broken job log
// must never fail the pipeline it describes.
package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies the pipeline a record belongs to.
type Type string

const (
	TypeCurriculumDiscovery Type = "curriculum_discovery"
	TypeContentExtraction   Type = "content_extraction"
)

// Status of a job record.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Stage statuses.
const (
	StageInProgress = "IN_PROGRESS"
	StageCompleted  = "COMPLETED"
	StageFailed     = "FAILED"
)

// Stage is one logged step of a job.
type Stage struct {
	Name      string         `json:"stage_name"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Record is a persisted pipeline run.
type Record struct {
	ID        string         `json:"job_id"`
	Type      Type           `json:"job_type"`
	Status    Status         `json:"status"`
	Request   map[string]any `json:"request"`
	Stages    []Stage        `json:"stages"`
	Summary   map[string]any `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// NewID generates a job identifier. The timestamp keeps IDs sortable in
// listings; the suffix keeps jobs started in the same second distinct.
func NewID(t Type) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%s_%s", t, time.Now().UTC().Format("20060102_150405"), suffix)
}
