// Package progress carries pipeline events to the front end over a bounded
// channel. The pipeline only publishes; rendering happens on the consumer's
// goroutine.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"RedditCurator/internal/config"
	"RedditCurator/internal/domain"
	"RedditCurator/internal/ports"
)

const ellipsis = "..."

// Reporter is the producer side of the progress channel.
type Reporter struct {
	events   chan domain.ProgressEvent
	limiter  *rate.Limiter
	maxTitle int
	clock    clockwork.Clock
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ ports.ProgressSink = (*Reporter)(nil)

// NewReporter sizes the buffer and throttle from config. The throttle reads
// time from clock.
func NewReporter(cfg config.ProgressConfig, logger *slog.Logger, clock clockwork.Clock) *Reporter {
	limit := rate.Inf
	if cfg.EventsPerSecond > 0 {
		limit = rate.Limit(cfg.EventsPerSecond)
	}
	burst := max(cfg.Burst, 1)
	return &Reporter{
		events:   make(chan domain.ProgressEvent, max(cfg.BufferSize, 1)),
		limiter:  rate.NewLimiter(limit, burst),
		maxTitle: cfg.MaxTitleLength,
		clock:    clock,
		logger:   logger,
	}
}

// Report publishes event. Progress-only updates are throttled and dropped
// when the consumer lags; log entries and the final summary always get
// through unless ctx ends first.
func (r *Reporter) Report(ctx context.Context, event domain.ProgressEvent) {
	if event.Display != nil {
		display := *event.Display
		display.Title = Truncate(display.Title, r.maxTitle)
		event.Display = &display
	}
	if event.Percent > 100 {
		event.Percent = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	if event.Display == nil && !event.Final {
		if !r.limiter.AllowN(r.clock.Now(), 1) {
			r.dropped.Add(1)
			return
		}
		select {
		case r.events <- event:
		default:
			r.dropped.Add(1)
		}
		return
	}

	select {
	case r.events <- event:
	case <-ctx.Done():
		r.logger.Debug("progress event lost on cancellation", "message", event.Message)
	}
}

// Events is the consumer side.
func (r *Reporter) Events() <-chan domain.ProgressEvent {
	return r.events
}

// Dropped counts throttled or overflowed progress-only events.
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Close ends the stream; later reports are ignored.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.events)
}

// Truncate shortens s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
