package knownsource

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/p-n-ai/pai-curator/internal/curriculum"
	"github.com/p-n-ai/pai-curator/internal/source"
)

// Matcher synthesizes DiscoveredSources from cached known sources.
type Matcher struct {
	store Store
}

// NewMatcher creates a matcher over a known-source store.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// GetCachedSources returns discovered sources for every active known source
// matching the request's country, region (national entries match any region)
// and subject. A miss returns an empty slice; the caller falls back to agent
// search. The caller still assigns topic coverage and scores each source.
func (m *Matcher) GetCachedSources(ctx context.Context, req curriculum.DiscoveryRequest) ([]source.DiscoveredSource, error) {
	known, err := m.store.FindByLocation(ctx, req.Country, req.Region, req.Subject)
	if err != nil {
		return nil, fmt.Errorf("known source lookup: %w", err)
	}
	if len(known) == 0 {
		slog.Info("no cached sources",
			"country", req.Country, "region", req.Region, "subject", req.Subject)
		return nil, nil
	}

	slog.Info("found cached known sources", "count", len(known))

	out := make([]source.DiscoveredSource, 0, len(known))
	for _, k := range known {
		out = append(out, source.DiscoveredSource{
			URL:           BuildURL(k, req),
			Title:         fmt.Sprintf("%s - %s Grade %d", k.SourceName, req.Subject, req.Grade),
			Publisher:     k.Publisher,
			SourceType:    MapSourceType(k.SourceName),
			License:       source.ParseLicense(k.LicenseType),
			LicenseURL:    k.BaseURL + "/license",
			ContentFormat: source.Format(strings.ToUpper(k.ContentFormat)),
			Description:   "Cached known source: " + k.SourceName,
		})
	}
	return out, nil
}

// BuildURL substitutes {grade} and {subject} into the source's URL pattern.
// Without a pattern the base URL is returned as-is.
func BuildURL(k KnownSource, req curriculum.DiscoveryRequest) string {
	if k.URLPattern == "" {
		return k.BaseURL
	}
	p := strings.ReplaceAll(k.URLPattern, "{grade}", strconv.Itoa(req.Grade))
	p = strings.ReplaceAll(p, "{subject}", strings.ToLower(req.Subject))
	return k.BaseURL + p
}

// MapSourceType infers a source type from the source name.
func MapSourceType(name string) source.Type {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "khan"):
		return source.TypeEducationalPlatform
	case strings.Contains(lower, "gov"), strings.Contains(lower, "department"):
		return source.TypeGovernmentResource
	case strings.Contains(lower, "university"), strings.Contains(lower, "edu"):
		return source.TypeUniversityOER
	default:
		return source.TypeEducationalPlatform
	}
}
