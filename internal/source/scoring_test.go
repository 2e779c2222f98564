package source

import (
	"strings"
	"testing"
)

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i))
	}
	return out
}

func TestScore_OfficialCurriculumFullMarks(t *testing.T) {
	src := DiscoveredSource{
		Title:               "State Math Standards",
		SourceType:          TypeOfficialCurriculum,
		License:             LicenseCCBY,
		ContentFormat:       FormatHTML,
		ObjectivesAddressed: ids("obj_", 6),
		TopicsCovered:       ids("t_", 3),
	}

	b := Score(src, nil)

	if b.Authority != 5 || b.License != 5 || b.Extractability != 3 || b.Alignment != 5 {
		t.Errorf("sub-scores = %d/%d/%d/%d, want 5/5/3/5",
			b.Authority, b.Alignment, b.License, b.Extractability)
	}
	if b.Total != 18 {
		t.Errorf("Total = %d, want 18", b.Total)
	}

	vetted := FilterVetted([]DiscoveredSource{withScoring(src, b)}, 12, 3)
	if len(vetted) != 1 {
		t.Error("full-marks source should pass default thresholds")
	}
}

func TestScore_ProprietaryUniversityRejected(t *testing.T) {
	src := DiscoveredSource{
		Title:               "Lecture Portal",
		SourceType:          "UNIVERSITY",
		License:             LicenseProprietary,
		ContentFormat:       FormatPDF,
		ObjectivesAddressed: ids("obj_", 1),
	}

	b := Score(src, nil)

	if b.Authority != 4 || b.License != 0 || b.Extractability != 2 || b.Alignment != 3 {
		t.Errorf("sub-scores = %d/%d/%d/%d, want 4/3/0/2",
			b.Authority, b.Alignment, b.License, b.Extractability)
	}
	if b.Total != 9 {
		t.Errorf("Total = %d, want 9", b.Total)
	}

	vetted := FilterVetted([]DiscoveredSource{withScoring(src, b)}, 12, 3)
	if len(vetted) != 0 {
		t.Error("proprietary source must fail both gates")
	}
}

func TestScore_TotalInvariant(t *testing.T) {
	cases := []DiscoveredSource{
		{SourceType: TypeCommunityContent, License: LicenseCCBYND, ContentFormat: FormatVideo},
		{SourceType: TypeGovernmentResource, License: LicenseCustomOER, ContentFormat: FormatUnknown,
			ObjectivesAddressed: ids("o", 2)},
		{SourceType: "something-new", License: "NOT-A-LICENSE", ContentFormat: FormatInteractive,
			TopicsCovered: ids("t", 1)},
	}

	for i, src := range cases {
		b := Score(src, nil)
		if b.Total != b.Authority+b.Alignment+b.License+b.Extractability {
			t.Errorf("case %d: total %d != sum of sub-scores", i, b.Total)
		}
		if b.Authority < 0 || b.Authority > 5 ||
			b.Alignment < 0 || b.Alignment > 5 ||
			b.License < 0 || b.License > 5 ||
			b.Extractability < 0 || b.Extractability > 3 {
			t.Errorf("case %d: sub-score out of range: %+v", i, b)
		}
	}
}

func TestScore_UnknownLicenseFailsClosed(t *testing.T) {
	b := Score(DiscoveredSource{License: "ALL-RIGHTS-RESERVED-ISH"}, nil)
	if b.License != 0 {
		t.Errorf("unknown license score = %d, want 0", b.License)
	}
}

func TestScore_AlignmentTiers(t *testing.T) {
	tests := []struct {
		name       string
		objectives int
		topics     int
		want       int
	}{
		{"deep-and-broad", 5, 2, 5},
		{"deep-narrow", 5, 1, 4},
		{"three-objectives", 3, 1, 4},
		{"two-objectives", 2, 0, 3},
		{"one-objective", 1, 0, 3},
		{"topic-only", 0, 1, 2},
		{"nothing", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := DiscoveredSource{
				ObjectivesAddressed: ids("o", tt.objectives),
				TopicsCovered:       ids("t", tt.topics),
			}
			if got := Score(src, nil).Alignment; got != tt.want {
				t.Errorf("alignment(%d obj, %d topics) = %d, want %d",
					tt.objectives, tt.topics, got, tt.want)
			}
		})
	}
}

func TestScore_ManualAlignmentOverride(t *testing.T) {
	manual := 5
	src := DiscoveredSource{ObjectivesAddressed: nil}
	if got := Score(src, &manual).Alignment; got != 5 {
		t.Errorf("manual alignment = %d, want 5", got)
	}
}

func TestScore_Notes(t *testing.T) {
	src := DiscoveredSource{
		SourceType:          TypeOfficialCurriculum,
		License:             LicenseCCBY,
		ContentFormat:       FormatHTML,
		ObjectivesAddressed: ids("o", 6),
		TopicsCovered:       ids("t", 2),
	}
	b := Score(src, nil)

	want := "High authority source; Excellent curriculum alignment; Open license - allows derivatives; Easy content extraction"
	if b.Notes != want {
		t.Errorf("Notes = %q, want %q", b.Notes, want)
	}

	low := Score(DiscoveredSource{
		SourceType:    TypeCommunityContent,
		License:       LicenseProprietary,
		ContentFormat: FormatVideo,
	}, nil)
	if !strings.Contains(low.Notes, "Lower authority") ||
		!strings.Contains(low.Notes, "Restrictive license") ||
		!strings.Contains(low.Notes, "Moderate extraction difficulty") {
		t.Errorf("low-score notes missing annotations: %q", low.Notes)
	}
}

func TestFilterVetted_Monotonic(t *testing.T) {
	var sources []DiscoveredSource
	types := []Type{TypeOfficialCurriculum, TypeGovernmentResource, TypeEducationalPlatform, TypeCommunityContent}
	licenses := []License{LicenseCCBY, LicenseCCBYNC, LicenseCustomOER, LicenseProprietary}
	for i, typ := range types {
		src := DiscoveredSource{
			Title:               "s" + string(rune('0'+i)),
			SourceType:          typ,
			License:             licenses[i],
			ContentFormat:       FormatHTML,
			ObjectivesAddressed: ids("o", i+1),
			TopicsCovered:       ids("t", i),
		}
		sources = append(sources, withScoring(src, Score(src, nil)))
	}

	strict := FilterVetted(sources, 12, 3)
	looserTotal := FilterVetted(sources, 8, 3)
	looserLicense := FilterVetted(sources, 12, 0)

	if !subset(strict, looserTotal) {
		t.Error("lowering the total threshold must only grow the admitted set")
	}
	if !subset(strict, looserLicense) {
		t.Error("lowering the license threshold must only grow the admitted set")
	}
}

func TestFilterVetted_ProprietaryNeedsZeroThreshold(t *testing.T) {
	src := DiscoveredSource{
		Title:               "Paywalled",
		SourceType:          TypeOfficialCurriculum,
		License:             LicenseProprietary,
		ContentFormat:       FormatHTML,
		ObjectivesAddressed: ids("o", 6),
		TopicsCovered:       ids("t", 3),
	}
	scored := withScoring(src, Score(src, nil))

	if got := FilterVetted([]DiscoveredSource{scored}, 13, 1); len(got) != 0 {
		t.Error("proprietary source admitted with license threshold 1")
	}
	if got := FilterVetted([]DiscoveredSource{scored}, 13, 0); len(got) != 1 {
		t.Error("proprietary source rejected despite license threshold 0 and high total")
	}
}

func withScoring(src DiscoveredSource, b ScoringBreakdown) DiscoveredSource {
	src.Scoring = &b
	return src
}

func subset(a, b []DiscoveredSource) bool {
	titles := make(map[string]bool, len(b))
	for _, s := range b {
		titles[s.Title] = true
	}
	for _, s := range a {
		if !titles[s.Title] {
			return false
		}
	}
	return true
}
