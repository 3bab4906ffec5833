package curator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/logging"
)

type stubAnalyzer struct {
	compounds map[string]float64
	profiles  map[string]domain.EmotionProfile
	failing   map[string]bool
}

func (s stubAnalyzer) Score(text string) (domain.SentimentScore, error) {
	if s.failing[text] {
		return domain.SentimentScore{}, errors.New("scorer exploded")
	}
	return domain.SentimentScore{Compound: s.compounds[text]}, nil
}

func (s stubAnalyzer) Emotions(text string) (domain.EmotionProfile, error) {
	if p, ok := s.profiles[text]; ok {
		return p, nil
	}
	return nil, domain.ErrNoAffect
}

func newCurator(a stubAnalyzer) (*Curator, *config.CurationConfig) {
	cfg := config.DefaultCuration()
	return New(&cfg, a, logging.Discard()), &cfg
}

func thread(bodies ...string) domain.ContentItem {
	item := domain.ContentItem{ID: "p1"}
	for i, body := range bodies {
		item.Comments = append(item.Comments, domain.CommentItem{
			ID:     fmt.Sprintf("c%d", i),
			PostID: "p1",
			Body:   body,
			Score:  10,
		})
	}
	return item
}

func TestHasDiscussionSignalOpinionated(t *testing.T) {
	t.Parallel()

	c, _ := newCurator(stubAnalyzer{compounds: map[string]float64{
		"hot take": 0.4, "angry": -0.6, "meh": 0.1,
	}})

	assert.True(t, c.HasDiscussionSignal(thread("hot take", "hot take", "hot take")))
	assert.False(t, c.HasDiscussionSignal(thread("angry", "angry", "meh", "meh")),
		"two opinionated negatives are neither three opinions nor positive")
	assert.True(t, c.HasDiscussionSignal(thread("angry", "angry", "angry")))
}

func TestHasDiscussionSignalPositive(t *testing.T) {
	t.Parallel()

	joyful := domain.EmotionProfile{domain.EmotionJoy: 0.6, domain.EmotionAnger: 0.4}
	weak := domain.EmotionProfile{domain.EmotionJoy: 0.25, domain.EmotionSadness: 0.2}
	grim := domain.EmotionProfile{domain.EmotionFear: 0.7, domain.EmotionTrust: 0.3}
	c, _ := newCurator(stubAnalyzer{
		compounds: map[string]float64{"praise": 0.3},
		profiles:  map[string]domain.EmotionProfile{"joy": joyful, "weak": weak, "grim": grim},
	})

	assert.True(t, c.HasDiscussionSignal(thread("joy", "joy")))
	assert.True(t, c.HasDiscussionSignal(thread("joy", "praise")))
	assert.False(t, c.HasDiscussionSignal(thread("joy", "weak", "grim")))

	signal := c.Assess(thread("joy", "weak", "grim", "praise"))
	assert.Equal(t, 2, signal.Positive)
	assert.Equal(t, 1, signal.Opinionated)
	assert.True(t, signal.Rescued)
}

func TestAssessSamplesOnlyFirstComments(t *testing.T) {
	t.Parallel()

	c, cfg := newCurator(stubAnalyzer{compounds: map[string]float64{"opinion": -0.9}})

	bodies := make([]string, 0, cfg.EscalationSampleSize+3)
	for i := 0; i < cfg.EscalationSampleSize; i++ {
		bodies = append(bodies, "neutral")
	}
	bodies = append(bodies, "opinion", "opinion", "opinion")

	signal := c.Assess(thread(bodies...))
	assert.Equal(t, cfg.EscalationSampleSize, signal.Sampled)
	assert.Zero(t, signal.Opinionated)
	assert.False(t, signal.Rescued)
}

func TestAssessSkipsFailingComments(t *testing.T) {
	t.Parallel()

	c, _ := newCurator(stubAnalyzer{
		compounds: map[string]float64{"strong": 0.8},
		failing:   map[string]bool{"bad": true},
	})

	signal := c.Assess(thread("bad", "strong", "bad", "strong", "strong"))
	assert.Equal(t, 2, signal.Skipped)
	assert.Equal(t, 3, signal.Opinionated)
	assert.True(t, signal.Rescued)
}

func TestFilterCommentsByScoreOnly(t *testing.T) {
	t.Parallel()

	c, cfg := newCurator(stubAnalyzer{
		compounds: map[string]float64{"nice": 0.5},
		failing:   map[string]bool{"unscorable": true},
	})

	item := domain.ContentItem{ID: "p1", Comments: []domain.CommentItem{
		{ID: "a", Body: "nice", Score: cfg.MinCommentUpvotes},
		{ID: "b", Body: "nice", Score: cfg.MinCommentUpvotes - 1},
		{ID: "c", Body: "", Score: 100},
		{ID: "d", Body: "unscorable", Score: 5},
		{ID: "e", Body: "nice", Score: -4},
	}}

	retained := c.FilterComments(item)
	require.Len(t, retained, 3)
	assert.Equal(t, "a", retained[0].CommentID)
	assert.InDelta(t, 0.5, retained[0].Sentiment.Compound, 1e-9)
	assert.Equal(t, "c", retained[1].CommentID)
	assert.Equal(t, "d", retained[2].CommentID)
	assert.Zero(t, retained[2].Sentiment.Compound)
}

func TestFilterCommentsEmptyThread(t *testing.T) {
	t.Parallel()

	c, _ := newCurator(stubAnalyzer{})
	assert.Empty(t, c.FilterComments(domain.ContentItem{ID: "p"}))
	assert.False(t, c.HasDiscussionSignal(domain.ContentItem{ID: "p"}))
}
