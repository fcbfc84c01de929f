// Package analytics turns a transcript and the metadata its transcription
// provider reported into a speech-quality report.
//
// The engine is pure: no I/O, no shared mutable state. One Engine can serve
// any number of goroutines.
package analytics

import (
	"strings"
	"unicode/utf8"

	"github.com/snarg/speech-analytics/internal/sentiment"
)

// Reasons carried by the canonical empty report.
const (
	ReasonNoText  = "No transcription text provided"
	ReasonNoWords = "No words detected in transcription"
)

// Engine produces reports. The zero value is not usable; call New.
type Engine struct {
	sentiment SentimentScorer
}

type Option func(*Engine)

// WithSentimentScorer replaces the embedded AFINN analyzer.
func WithSentimentScorer(s SentimentScorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.sentiment = s
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{sentiment: sentiment.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

var defaultEngine = New()

// Analyze runs the default engine.
func Analyze(text string, meta *Metadata) *Report {
	return defaultEngine.Analyze(text, meta)
}

// Analyze scores text. meta may be nil. It never fails: degenerate input
// yields the empty report.
func (e *Engine) Analyze(text string, meta *Metadata) *Report {
	if strings.TrimSpace(text) == "" {
		return EmptyReport(ReasonNoText)
	}
	words := TokenizeWords(text)
	if len(words) == 0 {
		return EmptyReport(ReasonNoWords)
	}
	sentences := TokenizeSentences(text)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	fillers := detectFillers(strings.ToLower(text), len(words))
	quality := assessQuality(text, words, sentences, fillers.TotalCount, meta)

	accuracy := scoreAccuracy(text, meta)
	strength := scoreSpeechStrength(words, sentences)
	clarity := scoreClarity(words, sentences)
	fluency := scoreFluency(words, sentences, fillers.TotalCount)

	attenuate(&accuracy.Metric, quality)
	attenuate(&strength.Metric, quality)
	attenuate(&clarity.Metric, quality)
	attenuate(&fluency.Metric, quality)

	return &Report{
		Accuracy:          accuracy,
		SpeechStrength:    strength,
		Clarity:           clarity,
		Fluency:           fluency,
		FillerWords:       fillers,
		Sentiment:         analyzeSentiment(e.sentiment, text),
		Tone:              classifyTone(text, words),
		Statistics:        statistics(text, words, sentences),
		QualityAssessment: quality,
	}
}

// attenuate scales a primary metric by the quality factor and regrades it.
func attenuate(m *Metric, q QualityAssessment) {
	m.OriginalScore = m.Score
	m.Score = round1(m.Score * q.QualityFactor)
	m.Grade = GradeFor(m.Score)
	m.AdjustedBy = q.AdjustmentReason
}

func statistics(text string, words, sentences []string) Statistics {
	letters := 0
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	n := float64(len(words))
	return Statistics{
		TotalWords:        len(words),
		TotalSentences:    len(sentences),
		TotalCharacters:   utf8.RuneCountInString(text),
		UniqueWords:       uniqueCount(words),
		AvgWordLength:     round1(safeDivide(float64(letters), n, 0)),
		AvgSentenceLength: round1(safeDivide(n, float64(len(sentences)), 0)),
	}
}

// EmptyReport is the canonical report for input that cannot be analyzed.
// Every score is zero and reason is surfaced as the description and issue.
func EmptyReport(reason string) *Report {
	zero := Metric{Grade: GradeF, Description: reason}
	return &Report{
		Accuracy:       Accuracy{Metric: zero},
		SpeechStrength: SpeechStrength{Metric: zero},
		Clarity:        Clarity{Metric: zero, ReadabilityLevel: "N/A"},
		Fluency:        Fluency{Metric: zero},
		FillerWords: FillerStats{
			Breakdown:      []FillerCount{},
			Recommendation: reason,
		},
		Sentiment: neutralSentiment(),
		Tone: Tone{
			Primary:     ToneNeutral,
			Scores:      map[string]int{},
			RawScores:   map[string]int{},
			Description: reason,
		},
		QualityAssessment: QualityAssessment{
			QualityLevel:       QualityPoor,
			Issues:             []string{reason},
			AdjustmentReason:   reason,
			MetricsReliability: QualityPoor,
		},
	}
}
