package chunk

import "strings"

// Pattern lists, checked in priority order. Structural cues (definition,
// example) come before vaguer stylistic cues so a definition that happens to
// contain "like" still classifies as a definition.
var (
	definitionPhrases = []string{"is defined as", "definition", "means that", "refers to"}
	examplePhrases    = []string{"for example", "for instance", "such as", "e.g."}
	sequencePhrases   = []string{"first", "second", "step", "next", "then", "finally"}
	tipPhrases        = []string{"tip:", "hint:", "remember:", "note:"}
	mistakePhrases    = []string{"common mistake", "avoid", "don't", "incorrect"}
	analogyPhrases    = []string{"like", "similar to", "imagine", "think of"}
)

// Classify assigns a chunk type by ordered pattern priority; the first
// matching family wins. Step-by-step additionally requires a numbered list.
func Classify(text string) Type {
	lower := strings.ToLower(text)

	if containsAny(lower, definitionPhrases) {
		return TypeDefinition
	}
	if containsAny(lower, examplePhrases) {
		return TypeExample
	}
	if containsAny(lower, sequencePhrases) && numberedItem.MatchString(text) {
		return TypeStepByStep
	}
	if containsAny(lower, tipPhrases) {
		return TypeTip
	}
	if containsAny(lower, mistakePhrases) {
		return TypeCommonMistake
	}
	if containsAny(lower, analogyPhrases) {
		return TypeAnalogy
	}
	return TypeConceptExplanation
}

// EstimateDifficulty scores text complexity from average word length and
// average sentence length: 2*avgWordLen + avgSentenceLen/5, with thresholds
// at 15 and 25. Sentence count is the number of terminator-delimited
// segments, trailing empty segment included.
func EstimateDifficulty(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "easy"
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))

	sentenceCount := len(terminators.Split(text, -1))
	avgSentenceLen := float64(len(words)) / float64(sentenceCount)

	score := avgWordLen*2 + avgSentenceLen/5
	switch {
	case score < 15:
		return "easy"
	case score < 25:
		return "medium"
	default:
		return "hard"
	}
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
