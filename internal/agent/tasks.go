package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Step budgets per task kind. Structure extraction walks a whole document so
// it gets the largest budget; OER search is capped hard because it runs once
// per topic.
const (
	documentSteps = 50
	topicSteps    = 100
	searchSteps   = 15
	pageSteps     = 10
)

const documentsSchema = `{
	"type": "object",
	"required": ["documents"],
	"properties": {
		"documents": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "url"],
				"properties": {
					"title": {"type": "string"},
					"url": {"type": "string"},
					"publisher": {"type": "string"},
					"published": {"type": "string"},
					"pdf_url": {"type": "string"}
				}
			}
		}
	}
}`

const topicsSchema = `{
	"type": "object",
	"required": ["topics"],
	"properties": {
		"topics": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["topic_id", "name", "objectives"],
				"properties": {
					"topic_id": {"type": "string"},
					"name": {"type": "string"},
					"description": {"type": "string"},
					"order": {"type": "integer"},
					"objectives": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["objective_id", "description"],
							"properties": {
								"objective_id": {"type": "string"},
								"description": {"type": "string"},
								"skills": {"type": "array", "items": {"type": "string"}},
								"difficulty": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

const sourcesSchema = `{
	"type": "object",
	"required": ["sources"],
	"properties": {
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "url"],
				"properties": {
					"title": {"type": "string"},
					"url": {"type": "string"},
					"publisher": {"type": "string"},
					"description": {"type": "string"},
					"license": {"type": "string"},
					"license_url": {"type": "string"},
					"content_format": {"type": "string"}
				}
			}
		}
	}
}`

const pageSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"}
	}
}`

// DiscoverDocuments asks the agent to locate official curriculum documents
// for the request, most authoritative first.
func (c *Client) DiscoverDocuments(ctx context.Context, req curriculum.DiscoveryRequest) ([]curriculum.OfficialDocument, error) {
	terms := []string{req.Country, req.Region, "official curriculum", req.Subject,
		fmt.Sprintf("grade %d", req.Grade), req.Language}
	query := strings.Join(nonEmpty(terms), " ")

	task := fmt.Sprintf(`Search for official curriculum documents.

Query: %s

Instructions:
1. Search for official government curriculum documents.
2. Prefer .gov and .edu domains and official ministry websites.
3. Look for documents from the Ministry/Department of Education and
   state or provincial education authorities.
4. For each document extract title, url, publisher, publication date
   and a direct PDF link when available.
5. Return the top 5 most authoritative documents.`, query)

	var out struct {
		Documents []curriculum.OfficialDocument `json:"documents"`
	}
	if err := c.runTask(ctx, task, documentsSchema, documentSteps, &out); err != nil {
		return nil, fmt.Errorf("discover documents: %w", err)
	}
	return out.Documents, nil
}

// ExtractTopics asks the agent to parse the curriculum structure out of one
// official document.
func (c *Client) ExtractTopics(ctx context.Context, doc curriculum.OfficialDocument, req curriculum.DiscoveryRequest) ([]curriculum.Topic, error) {
	task := fmt.Sprintf(`Parse the curriculum structure from an official document.

Document URL: %s
Subject: %s
Grade: %d

Instructions:
1. Navigate to the document and identify all main curriculum topics
   for grade %d.
2. Group topics only when they are closely related; do not force
   grouping of distinct topics to reduce the count. Five to nine
   well-defined topics is typical, but quality beats count.
3. For each topic extract a clear name, a description, the sequential
   order, and every learning objective under it.
4. Use short keyword IDs: topics t1_operations, t2_fractions, ...;
   objectives obj_t1_001, obj_t1_002, ...
5. Return the complete hierarchy for the grade.`, doc.URL, req.Subject, req.Grade, req.Grade)

	var out struct {
		Topics []curriculum.Topic `json:"topics"`
	}
	if err := c.runTask(ctx, task, topicsSchema, topicSteps, &out); err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	return out.Topics, nil
}

// oerSource is the wire shape of an agent-found source. License and format
// come back as free-form strings and are normalized here.
type oerSource struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Publisher     string `json:"publisher"`
	Description   string `json:"description"`
	License       string `json:"license"`
	LicenseURL    string `json:"license_url"`
	ContentFormat string `json:"content_format"`
	SourceType    string `json:"source_type"`
}

// SearchOER asks the agent for one high-quality open resource covering the
// topic. Returns nil when the agent found nothing usable.
func (c *Client) SearchOER(ctx context.Context, topic curriculum.Topic, req curriculum.DiscoveryRequest) (*source.DiscoveredSource, error) {
	task := fmt.Sprintf(`Search for Open Educational Resources.

Topic: %s
Subject: %s
Grade: %d
Number of learning objectives: %d

Instructions:
1. Search trusted OER publishers: Khan Academy (khanacademy.org)
   first, then government education sites (.gov, .edu), then
   OpenStax and CK-12.
2. Find only one high-quality source that covers this topic.
3. Extract title, url, publisher, license type if visible (CC-BY,
   CC-BY-SA, CC-BY-NC-SA, ...), content format (HTML, PDF, VIDEO)
   and a brief description.
4. Prefer HTML content; avoid video sources.`,
		topic.Name, req.Subject, req.Grade, len(topic.Objectives))

	var out struct {
		Sources []oerSource `json:"sources"`
	}
	if err := c.runTask(ctx, task, sourcesSchema, searchSteps, &out); err != nil {
		return nil, fmt.Errorf("search oer: %w", err)
	}
	if len(out.Sources) == 0 {
		return nil, nil
	}

	found := out.Sources[0]
	src := &source.DiscoveredSource{
		URL:           found.URL,
		Title:         found.Title,
		Publisher:     found.Publisher,
		Description:   found.Description,
		SourceType:    source.Type(strings.ToUpper(strings.TrimSpace(found.SourceType))),
		License:       source.ParseLicense(found.License),
		LicenseURL:    found.LicenseURL,
		ContentFormat: source.Format(strings.ToUpper(strings.TrimSpace(found.ContentFormat))),
		DiscoveredAt:  time.Now().UTC(),
	}
	if src.SourceType == "" {
		src.SourceType = source.TypeEducationalPlatform
	}
	if src.ContentFormat == "" {
		src.ContentFormat = source.FormatUnknown
	}
	return src, nil
}

// ReadPage renders a page in the agent's browser and returns its readable
// text. Satisfies the extraction pipeline's PageReader.
func (c *Client) ReadPage(ctx context.Context, url string) (string, error) {
	task := fmt.Sprintf(`Read a web page.

URL: %s

Instructions:
1. Navigate to the page and wait for the main content to render.
2. Return the readable text of the page: headings, paragraphs and
   list items, in document order. Skip navigation, ads and footers.
3. For video pages, return the transcript if one is available.`, url)

	var out struct {
		Text string `json:"text"`
	}
	if err := c.runTask(ctx, task, pageSchema, pageSteps, &out); err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return out.Text, nil
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
