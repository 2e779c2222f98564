package knownsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape of a known-source seed file.
type seedFile struct {
	Sources []KnownSource `yaml:"sources"`
}

// LoadSeedFile reads known sources from a YAML file.
func LoadSeedFile(path string) ([]KnownSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	for i, src := range f.Sources {
		if src.Key == "" {
			return nil, fmt.Errorf("seed file %s: source %d has no source_key", path, i)
		}
	}
	return f.Sources, nil
}

// Seed installs sources from the seed file at path when it exists, otherwise
// the built-in defaults. Existing entries are left untouched.
func Seed(ctx context.Context, store Store, path string) error {
	sources := DefaultSources()

	if path != "" {
		if loaded, err := LoadSeedFile(path); err == nil {
			sources = loaded
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if err := store.BulkCreate(ctx, sources); err != nil {
		return fmt.Errorf("seeding known sources: %w", err)
	}
	slog.Info("seeded known sources", "count", len(sources))
	return nil
}

// DefaultSources is the built-in seed set of trusted OER providers.
func DefaultSources() []KnownSource {
	ca := "CA"
	return []KnownSource{
		{
			Key:                 "us_all_mathematics_khan_academy",
			Country:             "US",
			SourceName:          "Khan Academy",
			BaseURL:             "https://www.khanacademy.org",
			Publisher:           "Khan Academy",
			Subjects:            []string{"Mathematics", "Science", "Computing"},
			GradeRange:          "K-12",
			Language:            "en",
			URLPattern:          "/math/cc-{grade}-math",
			SearchQueryTemplate: "site:khanacademy.org {subject} grade {grade}",
			LicenseType:         "CC-BY-NC-SA",
			AuthorityScore:      4,
			ContentFormat:       "HTML",
			IsActive:            true,
		},
		{
			Key:                 "us_ca_mathematics_khan_academy",
			Country:             "US",
			Region:              &ca,
			SourceName:          "Khan Academy - California Standards",
			BaseURL:             "https://www.khanacademy.org",
			Publisher:           "Khan Academy",
			Subjects:            []string{"Mathematics"},
			GradeRange:          "K-12",
			Language:            "en",
			URLPattern:          "/math/cc-{grade}-math",
			SearchQueryTemplate: "site:khanacademy.org California standards {subject} grade {grade}",
			LicenseType:         "CC-BY-NC-SA",
			AuthorityScore:      4,
			ContentFormat:       "HTML",
			IsActive:            true,
		},
		{
			Key:                 "us_ca_all_ca_dept_education",
			Country:             "US",
			Region:              &ca,
			SourceName:          "California Department of Education",
			BaseURL:             "https://www.cde.ca.gov",
			Publisher:           "California Department of Education",
			Subjects:            []string{"Mathematics", "Science", "English Language Arts", "History"},
			GradeRange:          "K-12",
			Language:            "en",
			URLPattern:          "/ci/",
			SearchQueryTemplate: "site:cde.ca.gov {subject} grade {grade} curriculum",
			LicenseType:         "PUBLIC-DOMAIN",
			AuthorityScore:      5,
			ContentFormat:       "PDF",
			IsActive:            true,
		},
		{
			Key:                 "us_all_mathematics_openstax",
			Country:             "US",
			SourceName:          "OpenStax",
			BaseURL:             "https://openstax.org",
			Publisher:           "OpenStax",
			Subjects:            []string{"Mathematics", "Science", "Social Sciences"},
			GradeRange:          "9-12",
			Language:            "en",
			URLPattern:          "/subjects",
			SearchQueryTemplate: "site:openstax.org {subject}",
			LicenseType:         "CC-BY",
			AuthorityScore:      5,
			ContentFormat:       "PDF",
			IsActive:            true,
		},
		{
			Key:                 "us_all_all_ck12",
			Country:             "US",
			SourceName:          "CK-12 Foundation",
			BaseURL:             "https://www.ck12.org",
			Publisher:           "CK-12 Foundation",
			Subjects:            []string{"Mathematics", "Science", "History", "English"},
			GradeRange:          "K-12",
			Language:            "en",
			URLPattern:          "/student/",
			SearchQueryTemplate: "site:ck12.org {subject} grade {grade}",
			LicenseType:         "CC-BY-NC",
			AuthorityScore:      4,
			ContentFormat:       "HTML",
			IsActive:            true,
		},
	}
}
