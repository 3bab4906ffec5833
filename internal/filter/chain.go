// Package filter decides whether a post is relevant enough to keep.
package filter

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

// Escalation inspects the comment thread of an otherwise acceptable but
// sentiment-neutral post and reports whether the discussion rescues it.
type Escalation func(item domain.ContentItem) bool

// Chain runs the independent post predicates and collects every failing reason.
type Chain struct {
	cfg        *config.CurationConfig
	analyzer   ports.SentimentAnalyzer
	technical  []string
	reputation []string
	exclusion  []string
	flairs     map[string]struct{}
	logger     *slog.Logger
}

// NewChain prepares lower-cased keyword sets once.
func NewChain(cfg *config.CurationConfig, analyzer ports.SentimentAnalyzer, logger *slog.Logger) *Chain {
	flairs := make(map[string]struct{}, len(cfg.RelevantFlairs))
	for _, f := range config.Lowered(cfg.RelevantFlairs) {
		flairs[f] = struct{}{}
	}
	return &Chain{
		cfg:        cfg,
		analyzer:   analyzer,
		technical:  config.Lowered(cfg.TechnicalKeywords),
		reputation: config.Lowered(cfg.ReputationKeywords),
		exclusion:  config.Lowered(cfg.ExclusionKeywords),
		flairs:     flairs,
		logger:     logger,
	}
}

// Evaluate builds the verdict for item. escalate runs only when every other
// predicate passed and the post itself is sentiment-neutral.
func (c *Chain) Evaluate(item domain.ContentItem, escalate Escalation) domain.FilterVerdict {
	text := strings.ToLower(item.Title + "\n" + item.Body)

	var reasons []domain.Reason
	if _, ok := firstMatch(text, c.technical); !ok {
		reasons = append(reasons, domain.Reason{Code: domain.ReasonNoKeywords})
	}
	if term, ok := firstMatch(text, c.exclusion); ok {
		reasons = append(reasons, domain.Reason{Code: domain.ReasonExcludedTerm, Detail: term})
	}
	if reason, ok := c.checkFlair(item.Flair); !ok {
		reasons = append(reasons, reason)
	}
	if item.Score < c.cfg.MinPostUpvotes {
		reasons = append(reasons, domain.Reason{Code: domain.ReasonLowUpvotes, Detail: strconv.Itoa(item.Score)})
	}

	score := c.score(item)

	var escalated, rescued bool
	if math.Abs(score.Compound) <= c.cfg.SentimentThreshold {
		switch {
		case len(reasons) > 0 || escalate == nil:
			reasons = append(reasons, domain.Reason{Code: domain.ReasonNeutralSentiment})
		default:
			escalated = true
			if rescued = escalate(item); !rescued {
				reasons = append(reasons, domain.Reason{Code: domain.ReasonNeutralThread})
			}
		}
	}

	verdict := domain.NewVerdict(score, reasons...)
	verdict.Escalated = escalated
	verdict.Rescued = rescued
	verdict.ReputationTerms = allMatches(text, c.reputation)
	return verdict
}

func (c *Chain) checkFlair(flair string) (domain.Reason, bool) {
	normalized := strings.ToLower(strings.TrimSpace(flair))
	if normalized == "" {
		return domain.Reason{Code: domain.ReasonMissingFlair}, false
	}
	if _, ok := c.flairs[normalized]; ok {
		return domain.Reason{}, true
	}
	if _, ok := firstMatch(normalized, c.technical); ok {
		return domain.Reason{}, true
	}
	return domain.Reason{Code: domain.ReasonWrongFlair, Detail: flair}, false
}

func (c *Chain) score(item domain.ContentItem) domain.SentimentScore {
	score, err := c.analyzer.Score(item.SentimentText())
	if err != nil {
		c.logger.Warn("post sentiment unavailable, treating as neutral", "post_id", item.ID, "error", err)
		return domain.SentimentScore{Neutral: 1}
	}
	return score
}

func firstMatch(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

func allMatches(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			out = append(out, term)
		}
	}
	return out
}
