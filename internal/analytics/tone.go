package analytics

import (
	"strings"
	"unicode/utf8"
)

// classifyTone counts lexicon hits per tone category. Text without any hit
// falls back to punctuation and word-shape signals, and finally to casual.
func classifyTone(text string, words []string) Tone {
	lower := strings.ToLower(text)

	raw := make(map[string]int, len(tables.tones))
	total := 0
	for _, cat := range tables.tones {
		n := 0
		for _, m := range cat.matchers {
			n += m.count(lower)
		}
		raw[cat.name] = n
		total += n
	}
	if total == 0 {
		applyToneFallback(raw, text, words)
	}

	maxScore := 1
	for _, v := range raw {
		maxScore = max(maxScore, v)
	}

	scores := make(map[string]int, len(raw))
	primary, best := "", -1
	for _, cat := range tables.tones {
		s := int(roundHalfUp(safeDivide(float64(raw[cat.name]), float64(maxScore), 0) * 10))
		scores[cat.name] = s
		if s > best {
			primary, best = cat.name, s
		}
	}

	cat, _ := tables.tone(primary)
	return Tone{
		Primary:     primary,
		Scores:      scores,
		RawScores:   raw,
		Description: cat.description,
	}
}

func applyToneFallback(raw map[string]int, text string, words []string) {
	exclamations := strings.Count(text, "!")
	questions := strings.Count(text, "?")

	letters := 0
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	avgWordLength := safeDivide(float64(letters), float64(len(words)), 4)

	if float64(exclamations) > float64(len(words))*0.05 {
		raw[ToneEnthusiastic] = 3
	}
	if tables.contractions.MatchString(text) {
		raw[ToneCasual] = 2
	}
	if avgWordLength > 5.5 {
		raw[ToneFormal] = 2
	} else if avgWordLength > 4.5 {
		raw[ToneProfessional] = 2
	}
	if questions > 0 {
		raw[ToneAnalytical] = 1
	}

	for _, v := range raw {
		if v != 0 {
			return
		}
	}
	raw[ToneCasual] = 1
}
