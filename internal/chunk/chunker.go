package chunk

import (
	"log/slog"
	"regexp"
	"strings"
)

// Mode selects the chunking strategy. Thorough merges, re-splits and
// classifies; fast keeps paragraphs verbatim to save cost.
const (
	ModeThorough = "thorough"
	ModeFast     = "fast"
)

// Config controls the chunker.
type Config struct {
	MinWords int    // lower size bound, words
	MaxWords int    // upper size bound, words
	Overlap  int    // part of the contract, unused by the current strategies
	SplitBy  string // "paragraph" or "sentence"
	Mode     string // ModeThorough or ModeFast
}

// DefaultConfig returns the thorough paragraph strategy with the standard
// size bounds.
func DefaultConfig() Config {
	return Config{MinWords: 100, MaxWords: 500, SplitBy: "paragraph", Mode: ModeThorough}
}

// Chunker turns raw extracted text into chunks. Pure aside from logging.
type Chunker struct {
	cfg Config
}

// New creates a chunker with the given configuration. Zero-valued size
// bounds fall back to the defaults.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.SplitBy == "" {
		cfg.SplitBy = def.SplitBy
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	return &Chunker{cfg: cfg}
}

var (
	paragraphSep = regexp.MustCompile(`\n\s*\n`)
	terminators  = regexp.MustCompile(`[.!?]+`)
	numberedItem = regexp.MustCompile(`\d+\.`)
	fastMinWords = 10
)

// Chunk splits raw text into teaching units for one source. Objectives are
// assigned round-robin by chunk index, so the caller must preserve output
// order through embedding and persistence.
func (c *Chunker) Chunk(raw, sourceID, topicID string, objectiveIDs []string) []Chunk {
	if c.cfg.Mode == ModeFast {
		return c.chunkFast(raw, sourceID, topicID, objectiveIDs)
	}

	var texts []string
	switch c.cfg.SplitBy {
	case "sentence":
		texts = c.splitBySentence(raw)
	default:
		texts = c.splitByParagraph(raw)
	}

	var out []Chunk
	for _, text := range texts {
		wc := wordCount(text)
		if wc < c.cfg.MinWords || wc > c.cfg.MaxWords {
			continue
		}

		i := len(out)
		out = append(out, Chunk{
			ID:          NewID(),
			Content:     strings.TrimSpace(text),
			Type:        Classify(text),
			TopicID:     topicID,
			ObjectiveID: pickObjective(objectiveIDs, i),
			SourceID:    sourceID,
			WordCount:   wc,
			Difficulty:  EstimateDifficulty(text),
			Tags:        []string{},
		})
	}

	slog.Info("chunked content", "source_id", sourceID, "chunks", len(out))
	return out
}

// chunkFast keeps every paragraph of at least ten words verbatim with
// default metadata. No merging, no classification, no difficulty heuristic.
func (c *Chunker) chunkFast(raw, sourceID, topicID string, objectiveIDs []string) []Chunk {
	var out []Chunk
	for _, para := range splitParagraphs(raw) {
		if wordCount(para) < fastMinWords {
			continue
		}
		i := len(out)
		out = append(out, Chunk{
			ID:          NewID(),
			Content:     para,
			Type:        TypeConceptExplanation,
			TopicID:     topicID,
			ObjectiveID: pickObjective(objectiveIDs, i),
			SourceID:    sourceID,
			WordCount:   wordCount(para),
			Difficulty:  "medium",
			Tags:        []string{},
		})
	}

	slog.Info("chunked content (fast)", "source_id", sourceID, "chunks", len(out))
	return out
}

// splitByParagraph merges consecutive short paragraphs up to the minimum
// size, then re-splits anything over the maximum at sentence boundaries.
func (c *Chunker) splitByParagraph(raw string) []string {
	paragraphs := splitParagraphs(raw)

	// Greedy merge: paragraphs already at the minimum flush standalone,
	// short ones accumulate until the accumulator reaches the minimum.
	var merged []string
	current := ""
	for _, para := range paragraphs {
		if wordCount(para) >= c.cfg.MinWords {
			if current != "" {
				merged = append(merged, current)
				current = ""
			}
			merged = append(merged, para)
			continue
		}

		if current != "" {
			current += "\n\n" + para
		} else {
			current = para
		}
		if wordCount(current) >= c.cfg.MinWords {
			merged = append(merged, current)
			current = ""
		}
	}
	if current != "" {
		merged = append(merged, current)
	}

	// Re-split oversized chunks at sentence boundaries, greedily packing
	// sentences until the next would push past the maximum.
	var final []string
	for _, chunk := range merged {
		if wordCount(chunk) <= c.cfg.MaxWords {
			final = append(final, chunk)
			continue
		}

		sub := ""
		for _, sent := range terminators.Split(chunk, -1) {
			if wordCount(sub+sent) <= c.cfg.MaxWords {
				sub += sent + ". "
			} else {
				if sub != "" {
					final = append(final, strings.TrimSpace(sub))
				}
				sub = sent + ". "
			}
		}
		if sub != "" {
			final = append(final, strings.TrimSpace(sub))
		}
	}
	return final
}

// splitBySentence packs whole sentences greedily up to the maximum size.
func (c *Chunker) splitBySentence(raw string) []string {
	var chunks []string
	current := ""
	for _, sentence := range splitSentences(raw) {
		if wordCount(current+" "+sentence) <= c.cfg.MaxWords {
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
		} else {
			if current != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			current = sentence
		}
	}
	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

func splitParagraphs(raw string) []string {
	var out []string
	for _, p := range paragraphSep.Split(raw, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts after runs of sentence terminators followed by
// whitespace, keeping the terminators with their sentence.
func splitSentences(raw string) []string {
	var out []string
	start := 0
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		for i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			i++
		}
		if i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r') {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func pickObjective(objectiveIDs []string, i int) *string {
	if len(objectiveIDs) == 0 {
		return nil
	}
	id := objectiveIDs[i%len(objectiveIDs)]
	return &id
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
