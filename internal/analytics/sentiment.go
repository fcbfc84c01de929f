package analytics

import "github.com/snarg/speech-analytics/internal/sentiment"

// SentimentScorer is the lexicon engine behind the sentiment section of a
// report. The default is the embedded AFINN analyzer.
type SentimentScorer interface {
	Analyze(text string) sentiment.Result
}

const (
	labelVeryPositive = "Very Positive"
	labelPositive     = "Positive"
	labelNeutral      = "Neutral"
	labelNegative     = "Negative"
	labelVeryNegative = "Very Negative"
)

var sentimentEmoji = map[string]string{
	labelVeryPositive: "😄",
	labelPositive:     "🙂",
	labelNeutral:      "😐",
	labelNegative:     "😟",
	labelVeryNegative: "😞",
}

func analyzeSentiment(scorer SentimentScorer, text string) Sentiment {
	res := scorer.Analyze(text)

	label := labelNeutral
	switch {
	case res.Score > 2:
		label = labelVeryPositive
	case res.Score > 0:
		label = labelPositive
	case res.Score < -2:
		label = labelVeryNegative
	case res.Score < 0:
		label = labelNegative
	}

	pos, neg := res.Positive, res.Negative
	if pos == nil {
		pos = []string{}
	}
	if neg == nil {
		neg = []string{}
	}
	return Sentiment{
		Score:       res.Score,
		Comparative: round2(safeDivide(res.Comparative, 1, 0)),
		Label:       label,
		Positive:    pos,
		Negative:    neg,
		Emoji:       sentimentEmoji[label],
	}
}

func neutralSentiment() Sentiment {
	return Sentiment{
		Label:    labelNeutral,
		Positive: []string{},
		Negative: []string{},
		Emoji:    sentimentEmoji[labelNeutral],
	}
}
