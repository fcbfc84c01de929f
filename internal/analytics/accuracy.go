package analytics

import (
	"fmt"
	"regexp"
	"strings"
)

const maxListedUncertainWords = 3

var (
	anyCapital          = regexp.MustCompile(`[A-Z]`)
	leadingCapital      = regexp.MustCompile(`^[A-Z]`)
	anyPunctuation      = regexp.MustCompile(`[.,!?;:]`)
	terminatorMark      = regexp.MustCompile(`[.!?]`)
	consecutiveCapitals = regexp.MustCompile(`[A-Z]{3,}`)
)

// accuracyEvidence is the tagged variant of inputs the accuracy scorer can
// work from. Exactly one of the concrete types below is selected per call.
type accuracyEvidence interface {
	source() AccuracySource
}

type wordLevelEvidence struct {
	avgConfidence float64
	distribution  Distribution
	uncertain     []WordConfidence
	lowCount      int
}

type apiConfidenceEvidence struct {
	confidence float64
}

type heuristicEvidence struct{}

func (wordLevelEvidence) source() AccuracySource     { return SourceWordLevel }
func (apiConfidenceEvidence) source() AccuracySource { return SourceAPIConfidence }
func (heuristicEvidence) source() AccuracySource     { return SourceHeuristic }

// selectAccuracyEvidence picks the richest evidence tier the metadata supports.
func selectAccuracyEvidence(meta *Metadata) accuracyEvidence {
	if meta == nil {
		return heuristicEvidence{}
	}
	if present(meta.WordConfidenceAvg) && validDistribution(meta.WordDistribution) {
		return wordLevelEvidence{
			avgConfidence: *meta.WordConfidenceAvg,
			distribution:  *meta.WordDistribution,
			uncertain:     meta.UncertainWords,
			lowCount:      meta.LowConfidenceWords,
		}
	}
	if present(meta.OverallConfidence) {
		return apiConfidenceEvidence{confidence: *meta.OverallConfidence}
	}
	return heuristicEvidence{}
}

// validDistribution rejects missing, empty and negative bucket counts.
func validDistribution(d *Distribution) bool {
	if d == nil || d.Excellent < 0 || d.Good < 0 || d.Fair < 0 || d.Poor < 0 {
		return false
	}
	return d.Total() > 0
}

func scoreAccuracy(text string, meta *Metadata) Accuracy {
	switch ev := selectAccuracyEvidence(meta).(type) {
	case wordLevelEvidence:
		return scoreWordLevel(ev)
	case apiConfidenceEvidence:
		return scoreAPIConfidence(ev)
	case heuristicEvidence:
		return scoreHeuristic(text)
	default:
		panic(fmt.Sprintf("analytics: unhandled accuracy evidence %T", ev))
	}
}

func scoreWordLevel(ev wordLevelEvidence) Accuracy {
	d := ev.distribution
	total := float64(d.Total())
	weighted := (float64(d.Excellent)*100 + float64(d.Good)*80 + float64(d.Fair)*60 + float64(d.Poor)*30) / total
	weighted = clamp(weighted, 0, 100)

	uncertain := ev.uncertain
	if uncertain == nil {
		uncertain = []WordConfidence{}
	}
	breakdown := &AccuracyBreakdown{
		ExcellentWords: d.Excellent,
		GoodWords:      d.Good,
		FairWords:      d.Fair,
		PoorWords:      d.Poor,
		UncertainWords: uncertain,
	}
	avg := round1(ev.avgConfidence * 100)
	low := ev.lowCount

	return Accuracy{
		Metric: Metric{
			Score:       round1(weighted),
			Grade:       GradeFor(weighted),
			Description: wordLevelDescription(weighted, breakdown),
		},
		Source:             SourceWordLevel,
		Breakdown:          breakdown,
		AvgWordConfidence:  &avg,
		LowConfidenceWords: &low,
	}
}

func wordLevelDescription(score float64, b *AccuracyBreakdown) string {
	total := float64(b.ExcellentWords + b.GoodWords + b.FairWords + b.PoorWords)
	excellentPct := int(roundHalfUp(float64(b.ExcellentWords) / total * 100))
	poorPct := int(roundHalfUp(float64(b.PoorWords) / total * 100))

	var sb strings.Builder
	sb.WriteString(accuracyDescription(score))
	switch {
	case excellentPct > 70:
		fmt.Fprintf(&sb, " - %d%% of words transcribed with high confidence", excellentPct)
	case poorPct > 30:
		fmt.Fprintf(&sb, " - %d%% of words have low confidence (%d/%d words uncertain)", poorPct, b.PoorWords, int(total))
	default:
		sb.WriteString(" - Mixed confidence levels across transcription")
	}

	if len(b.UncertainWords) > 0 {
		n := min(len(b.UncertainWords), maxListedUncertainWords)
		listed := make([]string, n)
		for i := 0; i < n; i++ {
			listed[i] = b.UncertainWords[i].Text
		}
		fmt.Fprintf(&sb, `. Uncertain words: "%s"`, strings.Join(listed, ", "))
	}
	return sb.String()
}

func scoreAPIConfidence(ev apiConfidenceEvidence) Accuracy {
	score := clamp(ev.confidence*100, 0, 100)
	return Accuracy{
		Metric: Metric{
			Score:       round1(score),
			Grade:       GradeFor(score),
			Description: accuracyDescription(score),
		},
		Source: SourceAPIConfidence,
	}
}

// scoreHeuristic estimates accuracy from surface features of the text when
// the provider reported nothing usable. The result is confined to [20, 70].
func scoreHeuristic(text string) Accuracy {
	score := 30.0
	penalties := 0.0

	hasCapital := anyCapital.MatchString(text)
	hasPunctuation := anyPunctuation.MatchString(text)
	multipleSentences := len(terminatorMark.FindAllStringIndex(text, -1)) > 1
	wordCount := len(strings.Fields(text))
	startsCapital := leadingCapital.MatchString(strings.TrimSpace(text))

	if hasCapital && startsCapital {
		score += 8
	}
	if hasPunctuation {
		score += 7
	}
	if multipleSentences {
		score += 5
	}
	if wordCount > 30 {
		score += 5
	}
	if wordCount > 80 {
		score += 5
	}

	if consecutiveCapitals.MatchString(text) {
		penalties += 10
	}
	if !hasPunctuation && wordCount > 10 {
		penalties += 15
	}
	if !hasCapital && wordCount > 5 {
		penalties += 10
	}
	if wordCount < 5 {
		penalties += 20
	}

	score = clamp(score-penalties, 20, 70)
	return Accuracy{
		Metric: Metric{
			Score:       round1(score),
			Grade:       GradeFor(score),
			Description: accuracyDescription(score) + " (estimated - limited data)",
		},
		Source: SourceHeuristic,
	}
}

func accuracyDescription(score float64) string {
	switch {
	case score >= 90:
		return "Excellent transcription quality"
	case score >= 70:
		return "Very good transcription quality"
	case score >= 50:
		return "Good transcription quality"
	case score >= 30:
		return "Fair transcription quality"
	case score >= 10:
		return "Poor transcription quality"
	default:
		return "Very poor transcription quality - consider better audio"
	}
}
