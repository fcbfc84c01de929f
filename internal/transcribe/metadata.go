package transcribe

import "github.com/snarg/speech-analytics/internal/analytics"

// BuildMetadata derives the analytics metadata for a provider response.
// The overall confidence is the bitrate and content adjusted one; the raw
// provider value is kept as the original confidence.
func BuildMetadata(resp *Response, fileSize int64) analytics.Metadata {
	adjusted := AdjustConfidence(resp.Confidence, fileSize, resp.Duration, resp.Text)
	meta := analytics.Metadata{
		OverallConfidence:  &adjusted,
		OriginalConfidence: resp.Confidence,
		LanguageCode:       resp.Language,
	}

	switch {
	case resp.LanguageConfidence != nil:
		meta.LanguageConfidence = resp.LanguageConfidence
	case resp.Confidence != nil && *resp.Confidence != 0:
		lc := *resp.Confidence
		meta.LanguageConfidence = &lc
	default:
		lc := defaultBaseConfidence
		meta.LanguageConfidence = &lc
	}

	if resp.Duration > 0 {
		d := resp.Duration
		meta.DurationSeconds = &d
	}

	if len(resp.Words) > 0 {
		ws := SummarizeWords(resp.Words)
		avg := ws.Average
		dist := ws.Distribution
		meta.WordConfidenceAvg = &avg
		meta.WordDistribution = &dist
		meta.LowConfidenceWords = ws.Low
		meta.UncertainWords = ws.Uncertain
	}
	return meta
}
