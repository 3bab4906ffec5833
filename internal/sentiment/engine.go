// Package sentiment scores text polarity with VADER and emotion with a word
// lexicon.
package sentiment

import (
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jonreiter/govader"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

const lookBehind = 3

// vader loads the lexicon once; the analyzer only reads it afterwards.
var vader = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Engine is a pure, deterministic scorer.
type Engine struct {
	threshold float64
	analyzer  *govader.SentimentIntensityAnalyzer
}

var _ ports.SentimentAnalyzer = (*Engine)(nil)

// NewEngine binds the opinion threshold from the curation settings.
func NewEngine(cfg *config.CurationConfig) *Engine {
	return &Engine{threshold: cfg.SentimentThreshold, analyzer: vader()}
}

// Threshold returns the compound magnitude above which text is opinionated.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// IsOpinionated reports whether |compound| exceeds the threshold.
func (e *Engine) IsOpinionated(score domain.SentimentScore) bool {
	return math.Abs(score.Compound) > e.threshold
}

// Score computes the polarity breakdown of text. Empty text is fully neutral.
func (e *Engine) Score(text string) (domain.SentimentScore, error) {
	if !utf8.ValidString(text) {
		return domain.SentimentScore{}, domain.ErrMalformedText
	}
	if strings.TrimSpace(text) == "" {
		return domain.SentimentScore{Neutral: 1}, nil
	}

	s := e.analyzer.PolarityScores(text)
	if s.Negative+s.Neutral+s.Positive == 0 {
		// Nothing scorable, e.g. punctuation only.
		return domain.SentimentScore{Neutral: 1}, nil
	}
	return domain.SentimentScore{
		Negative: s.Negative,
		Neutral:  s.Neutral,
		Positive: s.Positive,
		Compound: math.Max(-1, math.Min(1, s.Compound)),
	}, nil
}

// Emotions returns per-category frequencies of emotion words in text.
func (e *Engine) Emotions(text string) (domain.EmotionProfile, error) {
	if !utf8.ValidString(text) {
		return nil, domain.ErrMalformedText
	}

	counts := make(map[domain.Emotion]int)
	total := 0
	tokens := tokenize(text)
	for i, tok := range tokens {
		emotions, ok := affect[tok]
		if !ok || negated(tokens, i) {
			continue
		}
		for _, emotion := range emotions {
			counts[emotion]++
			total++
		}
	}
	if total == 0 {
		return nil, domain.ErrNoAffect
	}

	profile := make(domain.EmotionProfile, len(domain.Emotions))
	for _, emotion := range domain.Emotions {
		profile[emotion] = float64(counts[emotion]) / float64(total)
	}
	return profile, nil
}

func negated(tokens []string, i int) bool {
	for j := 1; j <= lookBehind && i-j >= 0; j++ {
		prev := tokens[i-j]
		if _, ok := negators[prev]; ok || strings.HasSuffix(prev, "n't") {
			return true
		}
	}
	return false
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.ReplaceAll(f, "’", "'")
		if f = strings.Trim(f, "'"); f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
