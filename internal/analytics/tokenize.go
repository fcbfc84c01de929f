package analytics

import (
	"regexp"
	"strings"
)

var (
	nonWordChars        = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s'-]`)
	sentenceTerminators = regexp.MustCompile(`[.!?]+`)
)

// TokenizeWords lowercases text, replaces everything except letters (any
// script), digits, underscores, apostrophes and hyphens with spaces, and
// splits on whitespace.
func TokenizeWords(text string) []string {
	cleaned := nonWordChars.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Fields(cleaned)
}

// TokenizeSentences splits text after each run of '.', '!' or '?'. Spans are
// trimmed and keep their terminator. Spans with nothing but punctuation are
// dropped. When no span survives, the whole text is returned as one sentence.
// Blank input yields nil.
func TokenizeSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var spans []string
	start := 0
	for _, loc := range sentenceTerminators.FindAllStringIndex(text, -1) {
		spans = appendSpan(spans, text[start:loc[1]])
		start = loc[1]
	}
	spans = appendSpan(spans, text[start:])

	if len(spans) == 0 {
		return []string{text}
	}
	return spans
}

func appendSpan(spans []string, raw string) []string {
	s := strings.TrimSpace(raw)
	if strings.Trim(s, ".!? \t\r\n") == "" {
		return spans
	}
	return append(spans, s)
}

// uniqueCount returns the number of distinct tokens.
func uniqueCount(words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return len(seen)
}
