package analytics

import (
	"sort"
	"strings"
)

const maxFillerBreakdown = 10

// DetectFillers counts filler words and phrases in text.
func DetectFillers(text string) FillerStats {
	return detectFillers(strings.ToLower(text), len(TokenizeWords(text)))
}

func detectFillers(lower string, wordCount int) FillerStats {
	var (
		total     int
		breakdown []FillerCount
	)
	for _, m := range tables.fillers {
		if n := m.count(lower); n > 0 {
			breakdown = append(breakdown, FillerCount{Word: m.term, Count: n})
			total += n
		}
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Count > breakdown[j].Count
	})
	if len(breakdown) > maxFillerBreakdown {
		breakdown = breakdown[:maxFillerBreakdown]
	}
	if breakdown == nil {
		breakdown = []FillerCount{}
	}

	pct := safeDivide(float64(total), float64(wordCount), 0) * 100
	return FillerStats{
		TotalCount:     total,
		Percentage:     round1(pct),
		Breakdown:      breakdown,
		Recommendation: fillerRecommendation(pct),
	}
}

func fillerRecommendation(pct float64) string {
	switch {
	case pct < 2:
		return "Excellent - minimal filler words"
	case pct < 5:
		return "Good - acceptable filler word usage"
	case pct < 10:
		return "Fair - try to reduce filler words"
	default:
		return "High filler word usage - practice pausing instead"
	}
}
