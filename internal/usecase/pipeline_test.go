package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditCurator/internal/config"
	"RedditCurator/internal/curator"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/filter"
	"RedditCurator/internal/logging"
	"RedditCurator/internal/metrics"
	"RedditCurator/internal/ports"
)

type stubAnalyzer map[string]float64

func (s stubAnalyzer) Score(text string) (domain.SentimentScore, error) {
	return domain.SentimentScore{Compound: s[text]}, nil
}

func (s stubAnalyzer) Emotions(string) (domain.EmotionProfile, error) {
	return nil, domain.ErrNoAffect
}

// step is one answer of the fake stream: an item or an error.
type step struct {
	item domain.ContentItem
	err  error
}

type fakeSource struct {
	steps   []step
	openErr error
	closed  bool
}

func (f *fakeSource) Open(context.Context, domain.SourceRequest) (ports.ItemStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f, nil
}

func (f *fakeSource) Next(context.Context) (domain.ContentItem, error) {
	if len(f.steps) == 0 {
		return domain.ContentItem{}, io.EOF
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	return s.item, s.err
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeWriter struct {
	accepted    []domain.AcceptedItem
	rejected    []domain.RejectedItem
	acceptedErr error
	closed      bool
}

func (w *fakeWriter) WriteAccepted(item domain.AcceptedItem) error {
	if w.acceptedErr != nil {
		return w.acceptedErr
	}
	w.accepted = append(w.accepted, item)
	return nil
}

func (w *fakeWriter) WriteRejected(item domain.RejectedItem) error {
	w.rejected = append(w.rejected, item)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (s *recordingSink) Report(_ context.Context, event domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type recordingLedger struct {
	runIDs  []string
	verdict []domain.FilterVerdict
}

func (l *recordingLedger) RecordVerdict(_ context.Context, runID string, _ domain.ContentItem, verdict domain.FilterVerdict, _ int) error {
	l.runIDs = append(l.runIDs, runID)
	l.verdict = append(l.verdict, verdict)
	return nil
}

type harness struct {
	pipeline *Pipeline
	writer   *fakeWriter
	sink     *recordingSink
	ledger   *recordingLedger
	source   *fakeSource
}

func newHarness(t *testing.T, source *fakeSource, analyzer stubAnalyzer) *harness {
	t.Helper()

	cfg := config.DefaultCuration()
	logger := logging.Discard()
	h := &harness{
		writer: &fakeWriter{},
		sink:   &recordingSink{},
		ledger: &recordingLedger{},
		source: source,
	}
	h.pipeline = NewPipeline(PipelineDeps{
		Source:     source,
		Chain:      filter.NewChain(&cfg, analyzer, logger),
		Curator:    curator.New(&cfg, analyzer, logger),
		OpenWriter: func(string) (ports.ResultWriter, error) { return h.writer, nil },
		Ledger:     h.ledger,
		Progress:   h.sink,
		Metrics:    metrics.NewRecorder(prometheus.NewRegistry()),
		Config:     &cfg,
		Logger:     logger,
		NewRunID:   func() string { return "run-1" },
	})
	return h
}

func comment(id, body string, score int) domain.CommentItem {
	return domain.CommentItem{ID: id, PostID: "p", Body: body, Score: score}
}

// escalatedPost: keyword in title, relevant flair, neutral body, three
// opinionated comments of which two clear the comment score bar.
func escalatedPost() domain.ContentItem {
	return domain.ContentItem{
		ID:    "p1",
		Title: "Ryzen 7800X3D after a month",
		Body:  "it is a cpu",
		Score: 50,
		Flair: "Review",
		Comments: []domain.CommentItem{
			comment("c1", "love it", 5),
			comment("c2", "awful temps", 1),
			comment("c3", "great value", 4),
		},
	}
}

func offTopicPost() domain.ContentItem {
	return domain.ContentItem{ID: "p2", Title: "Cat pictures", Body: "my cat", Score: 500, Flair: "Review"}
}

func thinThreadPost() domain.ContentItem {
	return domain.ContentItem{
		ID:    "p3",
		Title: "Radeon driver update",
		Body:  "good driver",
		Score: 30,
		Flair: "News",
		Comments: []domain.CommentItem{
			comment("d1", "works", 10),
			comment("d2", "meh", 1),
		},
	}
}

func scenarioAnalyzer() stubAnalyzer {
	return stubAnalyzer{
		"it is a cpu": 0.1,
		"love it":     0.4,
		"awful temps": 0.4,
		"great value": 0.4,
		"my cat":      0.9,
		"good driver": 0.8,
	}
}

func TestRunScenarios(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{
		{item: escalatedPost()},
		{item: offTopicPost()},
		{item: thinThreadPost()},
	}}
	h := newHarness(t, source, scenarioAnalyzer())

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, h.pipeline.State())

	assert.Equal(t, domain.RunStatistics{
		Processed:        3,
		Kept:             1,
		Filtered:         2,
		CommentsRetained: 2,
		Escalations:      1,
		Rescued:          1,
	}, stats)

	require.Len(t, h.writer.accepted, 1)
	kept := h.writer.accepted[0]
	assert.Equal(t, "p1", kept.Item.ID)
	assert.True(t, kept.Verdict.Escalated)
	assert.True(t, kept.Verdict.Rescued)
	require.Len(t, kept.Comments, 2)
	assert.Equal(t, "c1", kept.Comments[0].CommentID)
	assert.Equal(t, "c3", kept.Comments[1].CommentID)

	require.Len(t, h.writer.rejected, 2)
	offTopic := h.writer.rejected[0]
	assert.Equal(t, "p2", offTopic.Item.ID)
	assert.True(t, offTopic.Verdict.HasReason(domain.ReasonNoKeywords))
	assert.Contains(t, offTopic.Verdict.ReasonText(), "no relevant keywords")

	thin := h.writer.rejected[1]
	assert.Equal(t, "p3", thin.Item.ID)
	assert.Equal(t, "low comments (1)", thin.Verdict.ReasonText())

	assert.True(t, h.writer.closed)
	assert.True(t, source.closed)
	assert.Equal(t, []string{"run-1", "run-1", "run-1"}, h.ledger.runIDs)
}

func TestRunReportsEveryItemAndFinalSummary(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{{item: escalatedPost()}, {item: offTopicPost()}}}
	h := newHarness(t, source, scenarioAnalyzer())

	_, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd", Limit: 4})
	require.NoError(t, err)

	var displays []domain.DisplayEntry
	var percents []int
	for _, ev := range h.sink.events {
		if ev.Display != nil {
			displays = append(displays, *ev.Display)
		} else if !ev.Final && ev.Percent != domain.Indeterminate {
			percents = append(percents, ev.Percent)
		}
	}
	require.Len(t, displays, 2)
	assert.Equal(t, domain.DisplayAccepted, displays[0].Verdict)
	assert.Contains(t, displays[0].Detail, "rescued by comments")
	assert.Equal(t, domain.DisplayFiltered, displays[1].Verdict)
	assert.Equal(t, []int{25, 50}, percents)

	last := h.sink.events[len(h.sink.events)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "processed 2 posts: kept 1, filtered 1, comments retained 2", last.Message)
}

func TestRunItemErrorDoesNotFailRun(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{
		{err: &domain.ItemError{ItemID: "bad", Title: "Broken", Err: errors.New("timeout")}},
		{item: escalatedPost()},
	}}
	h := newHarness(t, source, scenarioAnalyzer())

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, h.pipeline.State())

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 1, stats.Errors)

	require.Len(t, h.writer.rejected, 1)
	rejected := h.writer.rejected[0]
	assert.Equal(t, "bad", rejected.Item.ID)
	assert.True(t, rejected.Verdict.HasReason(domain.ReasonProcessingError))
	assert.Contains(t, rejected.Verdict.ReasonText(), "timeout")
}

func TestRunStreamFailureEndsEarlyButCompletes(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{
		{item: offTopicPost()},
		{err: errors.New("listing page: 503")},
		{item: escalatedPost()},
	}}
	h := newHarness(t, source, scenarioAnalyzer())

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, h.pipeline.State())
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, stats.Processed, stats.Kept+stats.Filtered)
}

func TestRunPersistenceFailureIsCountedAsLoss(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{{item: escalatedPost()}}}
	h := newHarness(t, source, scenarioAnalyzer())
	h.writer.acceptedErr = errors.New("disk full")

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatistics{Processed: 1, Filtered: 1, Escalations: 1, Rescued: 1, Errors: 1}, stats)
	require.Len(t, h.writer.rejected, 1)
	assert.True(t, h.writer.rejected[0].Verdict.HasReason(domain.ReasonPersistError))
	assert.False(t, h.ledger.verdict[0].Accepted)
}

func TestRunSetupFailureFails(t *testing.T) {
	t.Parallel()

	source := &fakeSource{openErr: domain.ErrSourceUnavailable}
	h := newHarness(t, source, scenarioAnalyzer())

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Equal(t, domain.StateFailed, h.pipeline.State())
	assert.Zero(t, stats.Processed)

	last := h.sink.events[len(h.sink.events)-1]
	assert.True(t, last.Final)
	assert.Contains(t, last.Message, "run failed")
}

func TestRunOutputFailureFails(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{{item: escalatedPost()}}}
	h := newHarness(t, source, scenarioAnalyzer())
	h.pipeline.openWriter = func(string) (ports.ResultWriter, error) {
		return nil, domain.ErrPersistence
	}

	_, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, domain.StateFailed, h.pipeline.State())
	assert.True(t, source.closed)
}

func TestRunCancelledFails(t *testing.T) {
	t.Parallel()

	source := &fakeSource{steps: []step{{item: escalatedPost()}}}
	h := newHarness(t, source, scenarioAnalyzer())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline.Run(ctx, domain.SourceRequest{Name: "Amd"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StateFailed, h.pipeline.State())
	assert.Empty(t, h.writer.accepted)
	assert.True(t, h.writer.closed)
}

func TestRunStatisticsInvariant(t *testing.T) {
	t.Parallel()

	steps := []step{
		{item: escalatedPost()},
		{err: &domain.ItemError{ItemID: "x", Err: errors.New("boom")}},
		{item: offTopicPost()},
		{item: thinThreadPost()},
		{item: escalatedPost()},
	}
	h := newHarness(t, &fakeSource{steps: steps}, scenarioAnalyzer())

	stats, err := h.pipeline.Run(context.Background(), domain.SourceRequest{Name: "Amd"})
	require.NoError(t, err)
	assert.Equal(t, len(steps), stats.Processed)
	assert.Equal(t, stats.Processed, stats.Kept+stats.Filtered)
	assert.Equal(t, len(h.writer.accepted), stats.Kept)
	assert.Equal(t, len(h.writer.rejected), stats.Filtered)
	for _, v := range h.ledger.verdict {
		assert.Equal(t, v.Accepted, len(v.Reasons) == 0)
	}
}

func TestNewPipelineStartsIdle(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{})
	assert.Equal(t, domain.StateIdle, p.State())
	assert.NotEmpty(t, p.newRunID())
}
