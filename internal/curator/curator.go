// Package curator evaluates comment threads: the escalation signal for neutral
// posts and the engagement filter for retained comments.
package curator

import (
	"log/slog"
	"math"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

// Curator applies the comment-level rules.
type Curator struct {
	cfg      *config.CurationConfig
	analyzer ports.SentimentAnalyzer
	positive map[domain.Emotion]struct{}
	logger   *slog.Logger
}

// Signal is the escalation tally over the sampled comments.
type Signal struct {
	Sampled     int
	Skipped     int
	Opinionated int
	Positive    int
	Rescued     bool
}

// commentResult is the outcome of scoring one comment. A non-nil err means
// the comment is skipped; a nil profile means no emotion signal was found.
type commentResult struct {
	score   domain.SentimentScore
	profile domain.EmotionProfile
	err     error
}

// New wires a curator to the shared settings.
func New(cfg *config.CurationConfig, analyzer ports.SentimentAnalyzer, logger *slog.Logger) *Curator {
	positive := make(map[domain.Emotion]struct{}, len(cfg.PositiveEmotions))
	for _, e := range config.Lowered(cfg.PositiveEmotions) {
		positive[domain.Emotion(e)] = struct{}{}
	}
	return &Curator{cfg: cfg, analyzer: analyzer, positive: positive, logger: logger}
}

// HasDiscussionSignal reports whether the first comments of item carry enough
// opinion to rescue a neutral post.
func (c *Curator) HasDiscussionSignal(item domain.ContentItem) bool {
	return c.Assess(item).Rescued
}

// Assess tallies opinionated and positive comments among the first
// EscalationSampleSize comments.
func (c *Curator) Assess(item domain.ContentItem) Signal {
	sample := item.Comments
	if len(sample) > c.cfg.EscalationSampleSize {
		sample = sample[:c.cfg.EscalationSampleSize]
	}

	signal := Signal{Sampled: len(sample)}
	for _, comment := range sample {
		res := c.scoreComment(comment)
		if res.err != nil {
			signal.Skipped++
			c.logger.Warn("comment skipped during escalation", "post_id", item.ID, "comment_id", comment.ID, "error", res.err)
			continue
		}
		if math.Abs(res.score.Compound) > c.cfg.SentimentThreshold {
			signal.Opinionated++
		}
		if c.isPositive(res) {
			signal.Positive++
		}
	}

	signal.Rescued = signal.Opinionated >= c.cfg.MinOpinionatedComments ||
		signal.Positive >= c.cfg.MinPositiveComments

	c.logger.Debug("escalation tally",
		"post_id", item.ID,
		"sampled", signal.Sampled,
		"skipped", signal.Skipped,
		"opinionated", signal.Opinionated,
		"positive", signal.Positive,
		"rescued", signal.Rescued,
	)
	return signal
}

// FilterComments keeps every comment whose score reaches MinCommentUpvotes,
// independently of its body.
func (c *Curator) FilterComments(item domain.ContentItem) []domain.CommentRecord {
	retained := make([]domain.CommentRecord, 0, len(item.Comments))
	for _, comment := range item.Comments {
		if comment.Score < c.cfg.MinCommentUpvotes {
			continue
		}
		score, err := c.analyzer.Score(comment.Body)
		if err != nil {
			c.logger.Warn("retained comment has no sentiment", "post_id", item.ID, "comment_id", comment.ID, "error", err)
			score = domain.SentimentScore{}
		}
		retained = append(retained, domain.CommentRecord{
			CommentID: comment.ID,
			Body:      comment.Body,
			Score:     comment.Score,
			CreatedAt: comment.CreatedAt,
			Sentiment: score,
		})
	}
	return retained
}

func (c *Curator) scoreComment(comment domain.CommentItem) commentResult {
	score, err := c.analyzer.Score(comment.Body)
	if err != nil {
		return commentResult{err: err}
	}
	profile, err := c.analyzer.Emotions(comment.Body)
	if err != nil {
		profile = nil
	}
	return commentResult{score: score, profile: profile}
}

func (c *Curator) isPositive(res commentResult) bool {
	if res.score.Compound > c.cfg.SentimentThreshold {
		return true
	}
	emotion, magnitude, ok := res.profile.Dominant()
	if !ok {
		return false
	}
	_, positive := c.positive[emotion]
	return positive && magnitude > c.cfg.PositiveEmotionThreshold
}
