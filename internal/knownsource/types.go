// Package knownsource caches pre-vetted OER sources by location so discovery
// can skip the expensive agent search. The cache exempts a run from search,
// never from scoring.
package knownsource

import "time"

// KnownSource is a long-lived, pre-vetted source entry keyed by
// {country}_{region}_{subject}_{source_name}. A nil Region means the source
// works nationally.
type KnownSource struct {
	Key                 string     `json:"source_key" yaml:"source_key"`
	Country             string     `json:"country" yaml:"country"`
	Region              *string    `json:"region,omitempty" yaml:"region,omitempty"`
	SourceName          string     `json:"source_name" yaml:"source_name"`
	BaseURL             string     `json:"base_url" yaml:"base_url"`
	Publisher           string     `json:"publisher" yaml:"publisher"`
	Subjects            []string   `json:"subjects" yaml:"subjects"`
	GradeRange          string     `json:"grade_range" yaml:"grade_range"`
	Language            string     `json:"language" yaml:"language"`
	URLPattern          string     `json:"url_pattern" yaml:"url_pattern"`
	SearchQueryTemplate string     `json:"search_query_template,omitempty" yaml:"search_query_template,omitempty"`
	LicenseType         string     `json:"license_type" yaml:"license_type"`
	AuthorityScore      int        `json:"authority_score" yaml:"authority_score"`
	ContentFormat       string     `json:"content_format" yaml:"content_format"`
	IsActive            bool       `json:"is_active" yaml:"is_active"`
	LastVerified        *time.Time `json:"last_verified,omitempty" yaml:"last_verified,omitempty"`
	Notes               string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at" yaml:"created_at"`
}

// CoversSubject reports whether the source's subject set contains subject.
// An empty filter matches everything.
func (k KnownSource) CoversSubject(subject string) bool {
	if subject == "" {
		return true
	}
	for _, s := range k.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// MatchesRegion reports whether the source applies to the requested region.
// National sources (nil region) match every region of their country.
func (k KnownSource) MatchesRegion(region string) bool {
	if region == "" || k.Region == nil {
		return true
	}
	return *k.Region == region
}
