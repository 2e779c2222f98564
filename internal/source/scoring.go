package source

import (
	"log/slog"
	"strings"
)

// Score computes the rubric breakdown for a discovered source. Alignment is
// derived from topic/objective coverage unless manualAlignment overrides it.
func Score(src DiscoveredSource, manualAlignment *int) ScoringBreakdown {
	authority := authorityScore(src.SourceType)
	license := licenseScore(src.License)
	extractability := extractabilityScore(src.ContentFormat)

	alignment := 0
	if manualAlignment != nil {
		alignment = *manualAlignment
	} else {
		alignment = alignmentScore(distinct(src.ObjectivesAddressed), distinct(src.TopicsCovered))
	}

	b := ScoringBreakdown{
		Authority:      authority,
		Alignment:      alignment,
		License:        license,
		Extractability: extractability,
	}
	b.Total = b.Authority + b.Alignment + b.License + b.Extractability
	b.Notes = notes(b)
	return b
}

// authorityScore rates publisher credibility on [0,5]. An unknown type gets
// the community score rather than zero since type is advisory metadata.
func authorityScore(t Type) int {
	switch t {
	case TypeOfficialCurriculum, "OFFICIAL_GOVERNMENT":
		return 5
	case TypeUniversityOER, "UNIVERSITY":
		return 4
	case TypeGovernmentResource:
		return 4
	case TypeEducationalPlatform, TypeNGOContent, "EDUCATIONAL_NGO":
		return 3
	case TypeCommunityContent, "COMMUNITY":
		return 2
	default:
		return 2
	}
}

// licenseScore rates license openness on [0,5]. An unrecognized license
// scores 0: it must never be treated as open.
func licenseScore(l License) int {
	switch l {
	case LicenseCCBY, LicenseCCBYSA, LicenseCC0, LicensePublicDomain:
		return 5
	case LicenseCCBYNC, LicenseCCBYNCSA:
		return 4
	case LicenseCustomOER:
		return 3
	case LicenseCCBYND, LicenseCCBYNCND:
		return 2
	case LicenseProprietary:
		return 0
	default:
		return 0
	}
}

// extractabilityScore rates extraction difficulty on [0,3]. A missing or
// unknown format assumes moderate difficulty.
func extractabilityScore(f Format) int {
	switch f {
	case FormatHTML, FormatText:
		return 3
	case FormatPDF:
		return 2
	case FormatVideo, FormatInteractive:
		return 1
	case FormatProprietary:
		return 0
	default:
		return 2
	}
}

// alignmentScore rates curriculum coverage on [1,5]. Breadth across topics
// only matters once a minimum depth of objective coverage is met; a single
// well-matched objective counts the same as two.
func alignmentScore(objectives, topics int) int {
	switch {
	case objectives >= 5 && topics >= 2:
		return 5
	case objectives >= 3 && topics >= 1:
		return 4
	case objectives == 2:
		return 3
	case objectives == 1:
		return 3
	case topics >= 1:
		return 2
	default:
		return 1
	}
}

func notes(b ScoringBreakdown) string {
	var parts []string
	if b.Authority >= 4 {
		parts = append(parts, "High authority source")
	} else if b.Authority <= 2 {
		parts = append(parts, "Lower authority - community content")
	}
	if b.Alignment >= 4 {
		parts = append(parts, "Excellent curriculum alignment")
	} else if b.Alignment <= 2 {
		parts = append(parts, "Limited alignment to objectives")
	}
	if b.License >= 4 {
		parts = append(parts, "Open license - allows derivatives")
	} else if b.License <= 2 {
		parts = append(parts, "Restrictive license")
	}
	if b.Extractability >= 2 {
		parts = append(parts, "Easy content extraction")
	} else if b.Extractability == 1 {
		parts = append(parts, "Moderate extraction difficulty")
	}
	return strings.Join(parts, "; ")
}

func distinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// FilterVetted admits sources whose total and license sub-score both clear
// their thresholds. The license gate is independent so a high total can never
// smuggle in a closed license. Pure aside from accept/reject logging.
func FilterVetted(sources []DiscoveredSource, minTotal, minLicense int) []DiscoveredSource {
	vetted := make([]DiscoveredSource, 0, len(sources))
	for _, src := range sources {
		if src.Scoring == nil {
			slog.Warn("source skipped: not scored", "title", src.Title)
			continue
		}
		if src.Scoring.Total >= minTotal && src.Scoring.License >= minLicense {
			slog.Info("source vetted",
				"title", src.Title,
				"total", src.Scoring.Total,
				"license_score", src.Scoring.License)
			vetted = append(vetted, src)
		} else {
			slog.Info("source rejected",
				"title", src.Title,
				"total", src.Scoring.Total,
				"license_score", src.Scoring.License,
				"min_total", minTotal,
				"min_license", minLicense)
		}
	}
	return vetted
}
