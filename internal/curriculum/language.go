package curriculum

import "golang.org/x/text/language"

// NormalizeLanguage canonicalizes a request language ("English", "en-US",
// "eng") to a BCP 47 base tag. Unparseable input falls back to "en".
func NormalizeLanguage(lang string) string {
	if lang == "" {
		return "en"
	}

	tag, err := language.Parse(lang)
	if err != nil {
		// Requests often carry display names rather than tags.
		if t, ok := displayNames[normalizeKey(lang)]; ok {
			return t
		}
		return "en"
	}

	base, _ := tag.Base()
	return base.String()
}

func normalizeKey(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

var displayNames = map[string]string{
	"english":    "en",
	"french":     "fr",
	"français":   "fr",
	"spanish":    "es",
	"español":    "es",
	"german":     "de",
	"deutsch":    "de",
	"portuguese": "pt",
	"arabic":     "ar",
	"hindi":      "hi",
	"mandarin":   "zh",
	"chinese":    "zh",
	"malay":      "ms",
	"melayu":     "ms",
}
