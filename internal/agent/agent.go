// Package agent is the client for the browser-agent service. The agent runs
// research tasks in a real browser and returns structured output; this
// package submits tasks, follows the step-event stream, and validates the
// structured result before handing it to the pipeline.
package agent

import (
	"context"
	"encoding/json"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Oracle is the set of research questions the discovery pipeline can ask the
// browser agent. SearchOER returns at most one source per topic; a nil source
// with nil error means the agent found nothing usable.
type Oracle interface {
	DiscoverDocuments(ctx context.Context, req curriculum.DiscoveryRequest) ([]curriculum.OfficialDocument, error)
	ExtractTopics(ctx context.Context, doc curriculum.OfficialDocument, req curriculum.DiscoveryRequest) ([]curriculum.Topic, error)
	SearchOER(ctx context.Context, topic curriculum.Topic, req curriculum.DiscoveryRequest) (*source.DiscoveredSource, error)
	ReadPage(ctx context.Context, url string) (string, error)
}

// StepEvent is one message on a task's event stream.
type StepEvent struct {
	Type    string          `json:"type"` // "step", "done", or "error"
	Step    int             `json:"step,omitempty"`
	Message string          `json:"message,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
}

const (
	eventStep  = "step"
	eventDone  = "done"
	eventError = "error"
)
