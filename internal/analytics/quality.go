package analytics

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultQualityConfidence = 0.5
	minQualityFactor         = 0.1
	repeatedRunLength        = 6

	noAdjustmentReason = "High quality transcription, no adjustments needed"
	adjustmentPrefix   = "Scores adjusted due to: "
)

var (
	symbolRun       = regexp.MustCompile(`^[^a-zA-Z0-9\s]{5,}$`)
	vowelRun        = regexp.MustCompile(`(?i)^[aeiou]{10,}$`)
	overlongWord    = regexp.MustCompile(`\b\w{20,}\b`)
	capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+`)
)

// qualitySignals are the measurements every quality rule reads from.
// They are computed once per transcript.
type qualitySignals struct {
	confidence         float64
	gibberish          bool
	avgWordLength      float64
	words              int
	sentences          int
	wordsPerSentence   float64
	diversity          float64
	fillerRatio        float64
	capitalized        int
	punctuation        int
	languageConfidence float64
}

func measureQuality(text string, words, sentences []string, fillerCount int, meta *Metadata) *qualitySignals {
	n := float64(len(words))
	s := &qualitySignals{
		confidence:       qualityConfidence(meta),
		gibberish:        looksGarbled(text),
		avgWordLength:    safeDivide(float64(utf8.RuneCountInString(text)), n, 5),
		words:            len(words),
		sentences:        len(sentences),
		wordsPerSentence: safeDivide(n, float64(len(sentences)), 0),
		diversity:        safeDivide(float64(uniqueCount(words)), n, 1),
		fillerRatio:      safeDivide(float64(fillerCount), n, 0),
		capitalized:      len(capitalizedWord.FindAllStringIndex(text, -1)),
		punctuation:      len(anyPunctuation.FindAllStringIndex(text, -1)),
	}
	if meta != nil && present(meta.LanguageConfidence) {
		s.languageConfidence = *meta.LanguageConfidence
	}
	return s
}

// qualityConfidence is the provider confidence used by the assessment:
// the adjusted confidence, then the raw one, then a neutral default.
func qualityConfidence(meta *Metadata) float64 {
	if meta != nil {
		if present(meta.OverallConfidence) {
			return *meta.OverallConfidence
		}
		if present(meta.OriginalConfidence) {
			return *meta.OriginalConfidence
		}
	}
	return defaultQualityConfidence
}

func looksGarbled(text string) bool {
	return symbolRun.MatchString(text) ||
		hasRepeatedRun(text, repeatedRunLength) ||
		vowelRun.MatchString(text) ||
		overlongWord.MatchString(text)
}

// hasRepeatedRun reports whether text contains n identical consecutive
// characters on a single line.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			run = 0
		case run > 0 && r == prev:
			run++
		default:
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}

type qualityRule struct {
	issue   string
	penalty float64
	when    func(s *qualitySignals) bool
}

// qualityRules is evaluated tier by tier. Within a tier only the first
// matching rule applies.
var qualityRules = [][]qualityRule{
	{
		{"Very low transcription confidence", 50, func(s *qualitySignals) bool { return s.confidence < 0.5 }},
		{"Low transcription confidence", 25, func(s *qualitySignals) bool { return s.confidence < 0.7 }},
		{"Moderate transcription confidence", 10, func(s *qualitySignals) bool { return s.confidence < 0.85 }},
	},
	{
		{"Detected garbled or nonsense text", 60, func(s *qualitySignals) bool { return s.gibberish }},
	},
	{
		{"Unusually long words detected (possible errors)", 40, func(s *qualitySignals) bool { return s.avgWordLength > 15 }},
		{"Unusually short words (possible fragmentation)", 30, func(s *qualitySignals) bool { return s.avgWordLength < 2 }},
	},
	{
		{"Very short transcription (insufficient data)", 50, func(s *qualitySignals) bool { return s.words < 5 }},
		{"Short transcription (limited analysis)", 20, func(s *qualitySignals) bool { return s.words < 15 }},
	},
	{
		{"No sentence structure detected", 40, func(s *qualitySignals) bool { return s.sentences == 0 }},
		{"Extremely long sentences (possible run-on errors)", 20, func(s *qualitySignals) bool { return s.wordsPerSentence > 50 }},
	},
	{
		{"High word repetition (possible transcription error)", 40, func(s *qualitySignals) bool { return s.diversity < 0.3 }},
		{"Moderate word repetition", 15, func(s *qualitySignals) bool { return s.diversity < 0.5 }},
	},
	{
		{"Predominantly filler words (poor audio quality)", 50, func(s *qualitySignals) bool { return s.fillerRatio > 0.5 }},
		{"High filler word ratio", 25, func(s *qualitySignals) bool { return s.fillerRatio > 0.3 }},
	},
	{
		{"No capitalization (possible quality issue)", 15, func(s *qualitySignals) bool { return s.capitalized == 0 && s.words > 10 }},
	},
	{
		{"No punctuation detected", 10, func(s *qualitySignals) bool { return s.punctuation == 0 && s.sentences > 2 }},
	},
	{
		{"Uncertain language detection", 30, func(s *qualitySignals) bool {
			return s.languageConfidence > 0 && s.languageConfidence < 0.5
		}},
	},
}

// foldQualityRules sums the penalties of every triggered rule and collects
// their issues in evaluation order.
func foldQualityRules(tiers [][]qualityRule, s *qualitySignals) (penalty float64, issues []string) {
	issues = []string{}
	for _, tier := range tiers {
		for _, r := range tier {
			if r.when(s) {
				penalty += r.penalty
				issues = append(issues, r.issue)
				break
			}
		}
	}
	return penalty, issues
}

func assessQuality(text string, words, sentences []string, fillerCount int, meta *Metadata) QualityAssessment {
	s := measureQuality(text, words, sentences, fillerCount, meta)
	penalty, issues := foldQualityRules(qualityRules, s)

	remaining := math.Max(0, 100-penalty)
	factor := clamp(remaining/100, minQualityFactor, 1)
	level := qualityLevel(factor)

	reason := noAdjustmentReason
	if len(issues) > 0 {
		reason = adjustmentPrefix + strings.Join(issues, ", ")
	}
	return QualityAssessment{
		QualityFactor:      factor,
		QualityLevel:       level,
		QualityScore:       int(roundHalfUp(factor * 100)),
		Confidence:         s.confidence,
		Issues:             issues,
		AdjustmentReason:   reason,
		MetricsReliability: level,
	}
}

func qualityLevel(factor float64) string {
	switch {
	case factor < 0.4:
		return QualityPoor
	case factor < 0.6:
		return QualityFair
	case factor < 0.8:
		return QualityGood
	default:
		return QualityExcellent
	}
}
