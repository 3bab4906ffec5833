package ports

import (
	"context"

	"RedditCurator/internal/domain"
)

// ContentSource connects to an upstream provider and opens an item stream.
// An error from Open is a setup failure.
type ContentSource interface {
	Open(ctx context.Context, req domain.SourceRequest) (ItemStream, error)
}

// ItemStream yields fully materialised posts in source order. Next returns
// io.EOF when exhausted; errors matching domain.ErrItemFetch affect a single
// item only.
type ItemStream interface {
	Next(ctx context.Context) (domain.ContentItem, error)
	Close() error
}

// SentimentAnalyzer scores text polarity and emotion.
type SentimentAnalyzer interface {
	Score(text string) (domain.SentimentScore, error)
	Emotions(text string) (domain.EmotionProfile, error)
}

// ResultWriter persists accepted and rejected posts.
type ResultWriter interface {
	WriteAccepted(item domain.AcceptedItem) error
	WriteRejected(item domain.RejectedItem) error
	Close() error
}

// VerdictLedger records every decision for audit.
type VerdictLedger interface {
	RecordVerdict(ctx context.Context, runID string, item domain.ContentItem, verdict domain.FilterVerdict, retained int) error
}

// ProgressSink receives pipeline progress events.
type ProgressSink interface {
	Report(ctx context.Context, event domain.ProgressEvent)
}
