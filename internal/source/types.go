// Package source defines discovered OER sources, the scoring rubric that
// vets them, and the persisted source records.
package source

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies the publisher of a discovered source.
type Type string

const (
	TypeOfficialCurriculum  Type = "OFFICIAL_CURRICULUM"
	TypeUniversityOER       Type = "UNIVERSITY_OER"
	TypeEducationalPlatform Type = "EDUCATIONAL_PLATFORM"
	TypeGovernmentResource  Type = "GOVERNMENT_RESOURCE"
	TypeNGOContent          Type = "NGO_CONTENT"
	TypeCommunityContent    Type = "COMMUNITY_CONTENT"
)

// License is the closed set of content licenses the rubric understands.
type License string

const (
	LicenseCCBY         License = "CC-BY"
	LicenseCCBYSA       License = "CC-BY-SA"
	LicenseCCBYNC       License = "CC-BY-NC"
	LicenseCCBYNCSA     License = "CC-BY-NC-SA"
	LicenseCCBYND       License = "CC-BY-ND"
	LicenseCCBYNCND     License = "CC-BY-NC-ND"
	LicensePublicDomain License = "PUBLIC-DOMAIN"
	LicenseCC0          License = "CC0"
	LicenseCustomOER    License = "CUSTOM_OER"
	LicenseProprietary  License = "PROPRIETARY"
)

// Format is the declared content format of a source.
type Format string

const (
	FormatHTML        Format = "HTML"
	FormatPDF         Format = "PDF"
	FormatVideo       Format = "VIDEO"
	FormatText        Format = "TEXT"
	FormatInteractive Format = "INTERACTIVE"
	FormatURL         Format = "URL"
	FormatProprietary Format = "PROPRIETARY"
	FormatUnknown     Format = "UNKNOWN"
)

// ParseLicense maps a free-form license string to the License enum. An
// unrecognized string maps to CUSTOM_OER: the source stays in play but the
// rubric treats it with scrutiny rather than as open.
func ParseLicense(s string) License {
	switch License(strings.ToUpper(strings.TrimSpace(s))) {
	case LicenseCCBY, LicenseCCBYSA, LicenseCCBYNC, LicenseCCBYNCSA,
		LicenseCCBYND, LicenseCCBYNCND, LicensePublicDomain, LicenseCC0,
		LicenseProprietary:
		return License(strings.ToUpper(strings.TrimSpace(s)))
	default:
		return LicenseCustomOER
	}
}

// DiscoveredSource is a candidate OER resource produced by the known-source
// cache or the agent search. Scoring is assigned exactly once.
type DiscoveredSource struct {
	URL                 string            `json:"url"`
	Title               string            `json:"title"`
	Publisher           string            `json:"publisher"`
	Description         string            `json:"description,omitempty"`
	SourceType          Type              `json:"source_type"`
	License             License           `json:"license"`
	LicenseURL          string            `json:"license_url,omitempty"`
	ContentFormat       Format            `json:"content_format"`
	TopicsCovered       []string          `json:"topics_covered"`
	ObjectivesAddressed []string          `json:"objectives_addressed"`
	Scoring             *ScoringBreakdown `json:"scoring,omitempty"`
	DiscoveredAt        time.Time         `json:"discovered_at"`
}

// ScoringBreakdown holds the four rubric sub-scores. Total is always the sum
// of the sub-scores. Immutable once computed.
type ScoringBreakdown struct {
	Authority      int    `json:"authority_score"`
	Alignment      int    `json:"alignment_score"`
	License        int    `json:"license_score"`
	Extractability int    `json:"extractability_score"`
	Total          int    `json:"total"`
	Notes          string `json:"notes"`
}

// ExtractionState values for a persisted source record.
const (
	StatePending   = "pending"
	StateExtracted = "extracted"
	StateFailed    = "failed"
)

// Record is a persisted vetted source.
type Record struct {
	ID              string           `json:"source_id"`
	CurriculumID    string           `json:"curriculum_id"`
	Title           string           `json:"title"`
	URL             string           `json:"url"`
	Publisher       string           `json:"publisher"`
	Description     string           `json:"description,omitempty"`
	SourceType      Type             `json:"source_type"`
	License         License          `json:"license"`
	ContentFormat   Format           `json:"content_format"`
	TopicIDs        []string         `json:"topic_ids"`
	ObjectiveIDs    []string         `json:"objective_ids"`
	Scoring         ScoringBreakdown `json:"scoring"`
	Vetted          bool             `json:"vetted"`
	ExtractionState string           `json:"extraction_state"`
	ChunkIDs        []string         `json:"chunk_ids"`
	DiscoveredAt    time.Time        `json:"discovered_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewID generates a source record identifier.
func NewID() string {
	return "src_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
