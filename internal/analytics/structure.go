package analytics

import (
	"math"
	"regexp"
	"strings"
)

const runOnSentenceWords = 30

var (
	silentSuffix = regexp.MustCompile(`(?:[^laeiouy]es|ed|[^laeiouy]e)$`)
	leadingY     = regexp.MustCompile(`^y`)
	vowelGroup   = regexp.MustCompile(`[aeiouy]{1,2}`)
)

func scoreSpeechStrength(words, sentences []string) SpeechStrength {
	n := float64(len(words))
	richness := safeDivide(float64(uniqueCount(words)), n, 0) * 100

	strong := 0
	for _, w := range words {
		if _, ok := tables.strongVerbs[w]; ok {
			strong++
		}
	}
	assertiveness := safeDivide(float64(strong), n, 0) * 1000

	avgWPS := safeDivide(n, float64(len(sentences)), 10)
	complexity := math.Min(safeDivide(avgWPS, 20, 0)*100, 100)

	score := math.Min(richness*0.4+assertiveness*0.3+complexity*0.3, 100)
	return SpeechStrength{
		Metric: Metric{
			Score:       round1(score),
			Grade:       GradeFor(score),
			Description: strengthDescription(score),
		},
		VocabularyRichness: round1(richness),
		Assertiveness:      round1(assertiveness),
		SentenceComplexity: round1(complexity),
	}
}

func scoreClarity(words, sentences []string) Clarity {
	n := float64(len(words))
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	avgSPW := safeDivide(float64(syllables), n, 1.5)
	avgWPS := safeDivide(n, float64(len(sentences)), 15)

	flesch := 206.835 - 1.015*avgWPS - 84.6*avgSPW
	clarity := clamp(flesch, 0, 100)

	runOns := 0
	for _, s := range sentences {
		if len(strings.Fields(s)) > runOnSentenceWords {
			runOns++
		}
	}
	penalty := safeDivide(float64(runOns), float64(len(sentences)), 0) * 20
	score := math.Max(0, clarity-penalty)

	return Clarity{
		Metric: Metric{
			Score:       round1(score),
			Grade:       GradeFor(score),
			Description: clarityDescription(score),
		},
		ReadabilityLevel:    readabilityLevel(flesch),
		FleschScore:         round1(flesch),
		AvgWordsPerSentence: round1(avgWPS),
		AvgSyllablesPerWord: round1(avgSPW),
		RunOnSentences:      runOns,
	}
}

func scoreFluency(words, sentences []string, fillerCount int) Fluency {
	n := float64(len(words))
	fillerRatio := safeDivide(float64(fillerCount), n, 0) * 100
	score := 100 - fillerRatio*5

	reps := adjacentRepeats(words)
	score = math.Max(0, score-safeDivide(float64(reps), n, 0)*100)

	lengths := make([]float64, len(sentences))
	for i, s := range sentences {
		lengths[i] = float64(len(strings.Fields(s)))
	}
	bonus := math.Min(safeDivide(stdDev(lengths), 2, 0), 10)
	score = clamp(score+bonus, 0, 100)

	return Fluency{
		Metric: Metric{
			Score:       round1(score),
			Grade:       GradeFor(score),
			Description: fluencyDescription(score),
		},
		FillerWordRatio: round1(fillerRatio),
		Repetitions:     reps,
	}
}

// countSyllables approximates English syllables with vowel-group counting.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	if len(word) <= 3 {
		return 1
	}
	word = silentSuffix.ReplaceAllString(word, "")
	word = leadingY.ReplaceAllString(word, "")
	if n := len(vowelGroup.FindAllStringIndex(word, -1)); n > 0 {
		return n
	}
	return 1
}

func adjacentRepeats(words []string) int {
	n := 0
	for i := 0; i+1 < len(words); i++ {
		if words[i] == words[i+1] {
			n++
		}
	}
	return n
}

// stdDev is the population standard deviation; fewer than two values yield 0.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func strengthDescription(score float64) string {
	switch {
	case score >= 80:
		return "Strong, assertive communication"
	case score >= 60:
		return "Moderate communication strength"
	case score >= 40:
		return "Developing communication strength"
	default:
		return "Needs improvement in vocabulary and assertion"
	}
}

func clarityDescription(score float64) string {
	switch {
	case score >= 80:
		return "Very clear and easy to understand"
	case score >= 60:
		return "Fairly clear communication"
	case score >= 40:
		return "Somewhat difficult to follow"
	default:
		return "Complex and difficult to understand"
	}
}

func fluencyDescription(score float64) string {
	switch {
	case score >= 80:
		return "Highly fluent speech"
	case score >= 60:
		return "Good fluency with minor hesitations"
	case score >= 40:
		return "Moderate fluency"
	default:
		return "Needs improvement - reduce filler words"
	}
}

func readabilityLevel(flesch float64) string {
	switch {
	case flesch >= 90:
		return "Very Easy"
	case flesch >= 80:
		return "Easy"
	case flesch >= 70:
		return "Fairly Easy"
	case flesch >= 60:
		return "Standard"
	case flesch >= 50:
		return "Fairly Difficult"
	case flesch >= 30:
		return "Difficult"
	default:
		return "Very Difficult"
	}
}
