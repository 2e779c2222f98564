package extract

import (
	"strings"

	"golang.org/x/text/language"
)

// Stop-word tables for the languages the pipeline commonly meets. Scoring is
// by distinct hits, which is enough to separate them on teaching text.
var stopWords = []struct {
	tag   language.Tag
	words []string
}{
	{language.English, []string{"the", "and", "is", "of", "to", "in", "that", "with"}},
	{language.Spanish, []string{"el", "la", "los", "las", "es", "de", "que", "una"}},
	{language.French, []string{"le", "la", "les", "est", "des", "une", "dans", "pour"}},
	{language.German, []string{"der", "die", "das", "und", "ist", "mit", "ein", "nicht"}},
	{language.Malay, []string{"yang", "dan", "ini", "itu", "untuk", "dengan", "adalah", "pada"}},
}

// DetectLanguage guesses the base language tag of extracted text. English is
// the fallback when nothing scores.
func DetectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return "en"
	}
	sample := words
	if len(sample) > 500 {
		sample = sample[:500]
	}

	present := make(map[string]bool, len(sample))
	for _, w := range sample {
		present[strings.Trim(w, ".,;:!?()\"'")] = true
	}

	best := language.English
	bestScore := 0
	for _, entry := range stopWords {
		score := 0
		for _, s := range entry.words {
			if present[s] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.tag, score
		}
	}

	base, _ := best.Base()
	return base.String()
}
