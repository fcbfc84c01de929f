package analytics

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// Tone category names, in declaration order.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneFormal       = "formal"
	ToneEnthusiastic = "enthusiastic"
	ToneAnalytical   = "analytical"
	ToneNeutral      = "neutral"
)

type lexiconFile struct {
	Fillers      []string `yaml:"fillers"`
	StrongVerbs  []string `yaml:"strong_verbs"`
	Contractions []string `yaml:"contractions"`
	Tones        []struct {
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Terms       []string `yaml:"terms"`
	} `yaml:"tones"`
}

// termMatcher counts whole-word occurrences of a word or phrase in
// lowercased text. Phrases match as contiguous token runs, so "you know"
// never matches inside "you knowledge".
type termMatcher struct {
	term string
	re   *regexp.Regexp
}

func newTermMatcher(term string) termMatcher {
	parts := strings.Fields(strings.ToLower(term))
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return termMatcher{
		term: strings.Join(strings.Fields(strings.ToLower(term)), " "),
		re:   regexp.MustCompile(`\b` + strings.Join(parts, `\s+`) + `\b`),
	}
}

func (m termMatcher) count(lower string) int {
	return len(m.re.FindAllStringIndex(lower, -1))
}

type toneCategory struct {
	name        string
	description string
	matchers    []termMatcher
}

// lexicon holds the immutable keyword tables shared by every analysis.
type lexicon struct {
	fillers      []termMatcher
	strongVerbs  map[string]struct{}
	contractions *regexp.Regexp
	tones        []toneCategory
}

var tables = mustLoadLexicon(lexiconYAML)

func mustLoadLexicon(data []byte) *lexicon {
	lx, err := loadLexicon(data)
	if err != nil {
		panic(err)
	}
	return lx
}

func loadLexicon(data []byte) (*lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(f.Fillers) == 0 || len(f.Tones) == 0 {
		return nil, fmt.Errorf("lexicon: fillers and tones must not be empty")
	}

	lx := &lexicon{
		strongVerbs: make(map[string]struct{}, len(f.StrongVerbs)),
	}
	for _, term := range f.Fillers {
		lx.fillers = append(lx.fillers, newTermMatcher(term))
	}
	for _, v := range f.StrongVerbs {
		lx.strongVerbs[strings.ToLower(v)] = struct{}{}
	}

	quoted := make([]string, len(f.Contractions))
	for i, c := range f.Contractions {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(c))
	}
	lx.contractions = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	for _, t := range f.Tones {
		cat := toneCategory{name: t.Name, description: t.Description}
		for _, term := range t.Terms {
			cat.matchers = append(cat.matchers, newTermMatcher(term))
		}
		lx.tones = append(lx.tones, cat)
	}
	return lx, nil
}

func (lx *lexicon) tone(name string) (toneCategory, bool) {
	for _, t := range lx.tones {
		if t.name == name {
			return t, true
		}
	}
	return toneCategory{}, false
}
