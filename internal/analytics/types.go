package analytics

import (
	"encoding/json"
	"fmt"
)

// Grade is a letter grade derived from a 0-100 score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Quality levels reported by the quality assessment.
const (
	QualityPoor      = "poor"
	QualityFair      = "fair"
	QualityGood      = "good"
	QualityExcellent = "excellent"
)

// Distribution buckets per-word confidences reported by the transcription provider.
type Distribution struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// Total returns the number of words across all buckets.
func (d Distribution) Total() int {
	return d.Excellent + d.Good + d.Fair + d.Poor
}

// WordConfidence is a single transcribed word with its provider confidence.
// Start and End are in milliseconds.
type WordConfidence struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
}

// Metadata is everything the transcription provider reported alongside the text.
// Every field is optional; a nil pointer or a zero value means "not reported".
type Metadata struct {
	OverallConfidence  *float64         `json:"confidence,omitempty"`
	OriginalConfidence *float64         `json:"originalConfidence,omitempty"`
	WordConfidenceAvg  *float64         `json:"wordConfidenceAvg,omitempty"`
	WordDistribution   *Distribution    `json:"wordDistribution,omitempty"`
	LowConfidenceWords int              `json:"lowConfidenceWords,omitempty"`
	LanguageCode       string           `json:"languageCode,omitempty"`
	LanguageConfidence *float64         `json:"languageConfidence,omitempty"`
	DurationSeconds    *float64         `json:"durationSeconds,omitempty"`
	UncertainWords     []WordConfidence `json:"uncertainWords,omitempty"`
}

// Input is the transcript contract accepted from upstream producers:
// the text plus any subset of the metadata fields, flattened.
type Input struct {
	Text string `json:"text"`
	Metadata
}

// Metric is the common shape of the four primary scores.
type Metric struct {
	Score         float64 `json:"score"`
	Grade         Grade   `json:"grade"`
	Description   string  `json:"description"`
	OriginalScore float64 `json:"originalScore"`
	AdjustedBy    string  `json:"adjustedBy,omitempty"`
}

// AccuracySource names which evidence tier produced the accuracy score.
type AccuracySource string

const (
	SourceWordLevel     AccuracySource = "word-level"
	SourceAPIConfidence AccuracySource = "api"
	SourceHeuristic     AccuracySource = "heuristic"
)

type AccuracyBreakdown struct {
	ExcellentWords int              `json:"excellentWords"`
	GoodWords      int              `json:"goodWords"`
	FairWords      int              `json:"fairWords"`
	PoorWords      int              `json:"poorWords"`
	UncertainWords []WordConfidence `json:"uncertainWords"`
}

type Accuracy struct {
	Metric
	Source             AccuracySource     `json:"source,omitempty"`
	Breakdown          *AccuracyBreakdown `json:"breakdown,omitempty"`
	AvgWordConfidence  *float64           `json:"avgWordConfidence,omitempty"`
	LowConfidenceWords *int               `json:"lowConfidenceWords,omitempty"`
}

type SpeechStrength struct {
	Metric
	VocabularyRichness float64 `json:"vocabularyRichness"`
	Assertiveness      float64 `json:"assertiveness"`
	SentenceComplexity float64 `json:"sentenceComplexity"`
}

type Clarity struct {
	Metric
	ReadabilityLevel    string  `json:"readabilityLevel"`
	FleschScore         float64 `json:"fleschScore"`
	AvgWordsPerSentence float64 `json:"avgWordsPerSentence"`
	AvgSyllablesPerWord float64 `json:"avgSyllablesPerWord"`
	RunOnSentences      int     `json:"runOnSentences"`
}

type Fluency struct {
	Metric
	FillerWordRatio float64 `json:"fillerWordRatio"`
	Repetitions     int     `json:"repetitions"`
}

// FillerCount is one entry of the filler breakdown. It encodes as a
// [word, count] pair, the shape the web dashboard reads.
type FillerCount struct {
	Word  string
	Count int
}

func (f FillerCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Word, f.Count})
}

func (f *FillerCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("filler count: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &f.Word); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &f.Count)
}

type FillerStats struct {
	TotalCount     int           `json:"totalCount"`
	Percentage     float64       `json:"percentage"`
	Breakdown      []FillerCount `json:"breakdown"`
	Recommendation string        `json:"recommendation"`
}

type Sentiment struct {
	Score       int      `json:"score"`
	Comparative float64  `json:"comparative"`
	Label       string   `json:"label"`
	Positive    []string `json:"positive"`
	Negative    []string `json:"negative"`
	Emoji       string   `json:"emoji"`
}

type Tone struct {
	Primary     string         `json:"primary"`
	Scores      map[string]int `json:"scores"`
	RawScores   map[string]int `json:"rawScores"`
	Description string         `json:"description"`
}

type Statistics struct {
	TotalWords        int     `json:"totalWords"`
	TotalSentences    int     `json:"totalSentences"`
	TotalCharacters   int     `json:"totalCharacters"`
	UniqueWords       int     `json:"uniqueWords"`
	AvgWordLength     float64 `json:"avgWordLength"`
	AvgSentenceLength float64 `json:"avgSentenceLength"`
}

// QualityAssessment is the meta-score describing how trustworthy the
// transcription looks. QualityFactor scales the four primary metrics.
type QualityAssessment struct {
	QualityFactor      float64  `json:"qualityFactor"`
	QualityLevel       string   `json:"qualityLevel"`
	QualityScore       int      `json:"qualityScore"`
	Confidence         float64  `json:"confidence"`
	Issues             []string `json:"issues"`
	AdjustmentReason   string   `json:"adjustmentReason"`
	MetricsReliability string   `json:"metricsReliability"`
}

// Report is the full analytics result for one transcript.
type Report struct {
	Accuracy          Accuracy          `json:"accuracy"`
	SpeechStrength    SpeechStrength    `json:"speechStrength"`
	Clarity           Clarity           `json:"clarity"`
	Fluency           Fluency           `json:"fluency"`
	FillerWords       FillerStats       `json:"fillerWords"`
	Sentiment         Sentiment         `json:"sentiment"`
	Tone              Tone              `json:"tone"`
	Statistics        Statistics        `json:"statistics"`
	QualityAssessment QualityAssessment `json:"qualityAssessment"`
}
