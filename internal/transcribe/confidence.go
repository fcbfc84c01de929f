package transcribe

import (
	"math"
	"regexp"
	"strings"

	"github.com/snarg/speech-analytics/internal/analytics"
)

const (
	defaultWordConfidence = 0.5
	defaultBaseConfidence = 0.75
	highConfidence        = 0.85
	lowConfidence         = 0.5
	maxUncertainWords     = 10

	minAdjustedConfidence = 0.2
	maxAdjustedConfidence = 0.98
	minBytesPerSecond     = 6000
)

// WordSummary aggregates per-word confidences.
type WordSummary struct {
	Average      float64
	Min          float64
	Max          float64
	High         int // > 0.85
	Low          int // < 0.5
	Distribution analytics.Distribution
	Uncertain    []analytics.WordConfidence
}

// SummarizeWords buckets word confidences. A word without a reported
// confidence counts as 0.5. No words at all yields an average of 0.5 and
// empty buckets.
func SummarizeWords(words []Word) WordSummary {
	if len(words) == 0 {
		return WordSummary{Average: defaultWordConfidence, Uncertain: []analytics.WordConfidence{}}
	}

	s := WordSummary{Min: 1, Uncertain: []analytics.WordConfidence{}}
	var total float64
	for _, w := range words {
		c := defaultWordConfidence
		if w.Confidence != nil && *w.Confidence != 0 {
			c = *w.Confidence
		}
		total += c
		s.Min = math.Min(s.Min, c)
		s.Max = math.Max(s.Max, c)

		if c > highConfidence {
			s.High++
		}
		if c < lowConfidence {
			s.Low++
			if len(s.Uncertain) < maxUncertainWords {
				s.Uncertain = append(s.Uncertain, analytics.WordConfidence{
					Text:       w.Word,
					Confidence: c,
					Start:      int64(math.Round(w.Start * 1000)),
					End:        int64(math.Round(w.End * 1000)),
				})
			}
		}

		switch {
		case c > 0.9:
			s.Distribution.Excellent++
		case c > 0.75:
			s.Distribution.Good++
		case c > 0.5:
			s.Distribution.Fair++
		default:
			s.Distribution.Poor++
		}
	}
	s.Average = total / float64(len(words))
	return s
}

var placeholderText = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(um|uh|hmm)+$`),
	regexp.MustCompile(`^\.+$`),
	regexp.MustCompile(`^[^a-zA-Z]+$`),
}

// AdjustConfidence lowers a provider confidence for recordings that are
// unlikely to transcribe well: low bitrate, almost no words, sub-second
// audio, or placeholder output. A nil or zero base counts as 0.75.
// The result lies in [0.2, 0.98].
func AdjustConfidence(base *float64, fileSize int64, duration float64, text string) float64 {
	conf := defaultBaseConfidence
	if base != nil && *base != 0 {
		conf = *base
	}

	perSecond := duration
	if perSecond <= 0 {
		perSecond = 1
	}

	var penalty float64
	if float64(fileSize)/perSecond < minBytesPerSecond {
		penalty += 10
	}
	if len(strings.Fields(text)) < 3 {
		penalty += 20
	}
	if duration < 1 {
		penalty += 15
	}
	for _, re := range placeholderText {
		if re.MatchString(text) {
			penalty += 30
			break
		}
	}

	return math.Max(minAdjustedConfidence, math.Min(maxAdjustedConfidence, conf-penalty/100))
}
