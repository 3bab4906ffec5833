package progress

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/logging"
)

func newReporter(cfg config.ProgressConfig) (*Reporter, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewReporter(cfg, logging.Discard(), clock), clock
}

func drain(r *Reporter) []domain.ProgressEvent {
	r.Close()
	var out []domain.ProgressEvent
	for ev := range r.Events() {
		out = append(out, ev)
	}
	return out
}

func TestReportThrottlesProgressOnlyEvents(t *testing.T) {
	t.Parallel()

	r, clock := newReporter(config.ProgressConfig{BufferSize: 16, EventsPerSecond: 1, Burst: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r.Report(ctx, domain.Busy("fetching"))
	}
	clock.Advance(time.Second)
	r.Report(ctx, domain.ProgressEvent{Message: "later", Percent: 40})

	events := drain(r)
	require.Len(t, events, 3)
	assert.Equal(t, "later", events[2].Message)
	assert.EqualValues(t, 3, r.Dropped())
}

func TestReportThrottleFollowsClock(t *testing.T) {
	t.Parallel()

	r, clock := newReporter(config.ProgressConfig{BufferSize: 16, EventsPerSecond: 2, Burst: 1})
	ctx := context.Background()

	r.Report(ctx, domain.Busy("first"))
	r.Report(ctx, domain.Busy("same instant"))
	clock.Advance(250 * time.Millisecond)
	r.Report(ctx, domain.Busy("too soon"))
	clock.Advance(250 * time.Millisecond)
	r.Report(ctx, domain.Busy("refilled"))

	events := drain(r)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Message)
	assert.Equal(t, "refilled", events[1].Message)
	assert.EqualValues(t, 2, r.Dropped())
}

func TestReportNeverThrottlesDisplayOrFinal(t *testing.T) {
	t.Parallel()

	r, _ := newReporter(config.ProgressConfig{BufferSize: 16, EventsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		r.Report(ctx, domain.ProgressEvent{
			Message: "item",
			Percent: domain.Indeterminate,
			Display: &domain.DisplayEntry{Title: "t", Verdict: domain.DisplayAccepted},
		})
	}
	r.Report(ctx, domain.ProgressEvent{Message: "done", Final: true, Percent: 100})

	events := drain(r)
	assert.Len(t, events, 5)
	assert.True(t, events[4].Final)
	assert.Zero(t, r.Dropped())
}

func TestReportDropsProgressWhenBufferFull(t *testing.T) {
	t.Parallel()

	r, _ := newReporter(config.ProgressConfig{BufferSize: 1})
	ctx := context.Background()

	r.Report(ctx, domain.Busy("one"))
	r.Report(ctx, domain.Busy("two"))

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].Message)
	assert.EqualValues(t, 1, r.Dropped())
}

func TestReportBlockingSendHonoursContext(t *testing.T) {
	t.Parallel()

	r, _ := newReporter(config.ProgressConfig{BufferSize: 1})
	ctx, cancel := context.WithCancel(context.Background())

	display := &domain.DisplayEntry{Title: "x", Verdict: domain.DisplayFiltered}
	r.Report(ctx, domain.ProgressEvent{Display: display})

	done := make(chan struct{})
	go func() {
		r.Report(ctx, domain.ProgressEvent{Display: display})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("report did not return after cancellation")
	}
}

func TestReportTruncatesDisplayTitle(t *testing.T) {
	t.Parallel()

	r, _ := newReporter(config.ProgressConfig{BufferSize: 4, MaxTitleLength: 10})
	entry := &domain.DisplayEntry{Title: strings.Repeat("ä", 30), Verdict: domain.DisplayAccepted}
	r.Report(context.Background(), domain.ProgressEvent{Display: entry})

	events := drain(r)
	require.Len(t, events, 1)
	assert.Equal(t, strings.Repeat("ä", 7)+"...", events[0].Display.Title)
	assert.Equal(t, strings.Repeat("ä", 30), entry.Title, "caller's entry is left untouched")
}

func TestReportAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	r, _ := newReporter(config.ProgressConfig{BufferSize: 4})
	r.Close()
	r.Close()
	assert.NotPanics(t, func() {
		r.Report(context.Background(), domain.ProgressEvent{Final: true})
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestRender(t *testing.T) {
	t.Parallel()

	events := make(chan domain.ProgressEvent, 4)
	events <- domain.Busy("connecting")
	events <- domain.ProgressEvent{Message: "evaluated", Percent: 50}
	events <- domain.ProgressEvent{Display: &domain.DisplayEntry{Title: "Ryzen post", Verdict: domain.DisplayFiltered, Detail: "low upvotes (3)"}}
	events <- domain.ProgressEvent{Message: "processed 2 posts", Final: true}
	close(events)

	var buf bytes.Buffer
	require.NoError(t, Render(context.Background(), events, &buf))

	assert.Equal(t, "[ ... ] connecting\n"+
		"[ 50%] evaluated\n"+
		"[filtered] Ryzen post | low upvotes (3)\n"+
		"== processed 2 posts\n", buf.String())
}
