// Package sentiment implements a lexicon-based sentiment scorer in the style
// of AFINN: each known word carries an integer valence from -5 to +5 and a
// text scores the sum of its words.
package sentiment

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed afinn.yaml
var afinnYAML []byte

// Result is the raw output of a sentiment scorer.
type Result struct {
	Score       int      `json:"score"`
	Comparative float64  `json:"comparative"`
	Positive    []string `json:"positive"`
	Negative    []string `json:"negative"`
}

// Lexicon maps lowercase words to valences, plus the words that flip the
// valence of the word that follows them.
type Lexicon struct {
	Words    map[string]int `yaml:"words"`
	Negators []string       `yaml:"negators"`
}

// Analyzer scores text against a fixed lexicon. It is safe for concurrent use.
type Analyzer struct {
	words    map[string]int
	negators map[string]struct{}
}

var stripPunct = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s'-]`)

// NewAnalyzer builds an analyzer from a lexicon. Keys are lowercased.
func NewAnalyzer(lx Lexicon) *Analyzer {
	a := &Analyzer{
		words:    make(map[string]int, len(lx.Words)),
		negators: make(map[string]struct{}, len(lx.Negators)),
	}
	for w, v := range lx.Words {
		a.words[strings.ToLower(w)] = v
	}
	for _, n := range lx.Negators {
		a.negators[strings.ToLower(n)] = struct{}{}
	}
	return a
}

// ParseLexicon decodes a YAML lexicon document.
func ParseLexicon(data []byte) (Lexicon, error) {
	var lx Lexicon
	if err := yaml.Unmarshal(data, &lx); err != nil {
		return Lexicon{}, fmt.Errorf("parse sentiment lexicon: %w", err)
	}
	if len(lx.Words) == 0 {
		return Lexicon{}, fmt.Errorf("sentiment lexicon has no words")
	}
	return lx, nil
}

var (
	defaultOnce     sync.Once
	defaultAnalyzer *Analyzer
)

// Default returns the analyzer backed by the embedded AFINN word list.
func Default() *Analyzer {
	defaultOnce.Do(func() {
		lx, err := ParseLexicon(afinnYAML)
		if err != nil {
			panic(err)
		}
		defaultAnalyzer = NewAnalyzer(lx)
	})
	return defaultAnalyzer
}

// Analyze scores text. A lexicon word directly preceded by a negator
// contributes its inverted valence. Comparative is the score divided by the
// number of tokens.
func (a *Analyzer) Analyze(text string) Result {
	tokens := strings.Fields(stripPunct.ReplaceAllString(strings.ToLower(text), " "))
	res := Result{Positive: []string{}, Negative: []string{}}

	for i, tok := range tokens {
		v, ok := a.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if _, neg := a.negators[tokens[i-1]]; neg {
				v = -v
			}
		}
		res.Score += v
		switch {
		case v > 0:
			res.Positive = append(res.Positive, tok)
		case v < 0:
			res.Negative = append(res.Negative, tok)
		}
	}

	if len(tokens) > 0 {
		res.Comparative = float64(res.Score) / float64(len(tokens))
	}
	return res
}
