package agent

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Mock is a canned Oracle for tests.
type Mock struct {
	Documents []curriculum.OfficialDocument
	Topics    []curriculum.Topic
	// SourcesByTopic maps topic ID to the source SearchOER returns.
	SourcesByTopic map[string]*source.DiscoveredSource
	Pages          map[string]string

	Err         error
	SearchCalls int
}

func (m *Mock) DiscoverDocuments(_ context.Context, _ curriculum.DiscoveryRequest) ([]curriculum.OfficialDocument, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Documents, nil
}

func (m *Mock) ExtractTopics(_ context.Context, _ curriculum.OfficialDocument, _ curriculum.DiscoveryRequest) ([]curriculum.Topic, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Topics, nil
}

func (m *Mock) SearchOER(_ context.Context, topic curriculum.Topic, _ curriculum.DiscoveryRequest) (*source.DiscoveredSource, error) {
	m.SearchCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SourcesByTopic[topic.ID], nil
}

func (m *Mock) ReadPage(_ context.Context, url string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	text, ok := m.Pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return text, nil
}
