package domain

import "time"

// DeletedAuthor replaces authors of removed accounts.
const DeletedAuthor = "[deleted]"

// TimestampLayout is the UTC layout used in every output table.
const TimestampLayout = "2006-01-02 15:04:05"

// ContentItem is a post fetched from the upstream source, with its comment
// thread already expanded.
type ContentItem struct {
	ID          string
	Title       string
	Body        string
	Score       int
	URL         string
	CreatedAt   time.Time
	NumComments int
	Flair       string
	Author      string
	// Comments holds the whole thread flattened in breadth-first order.
	Comments []CommentItem
}

// SentimentText is the text whose polarity stands for the post.
func (c ContentItem) SentimentText() string {
	if c.Body != "" {
		return c.Body
	}
	return c.Title
}

// CommentItem is a single reply inside a post thread.
type CommentItem struct {
	ID        string
	PostID    string
	ParentID  string
	Body      string
	Score     int
	CreatedAt time.Time
	Author    string
}

// CommentRecord is a retained comment ready for persistence.
type CommentRecord struct {
	CommentID string
	Body      string
	Score     int
	CreatedAt time.Time
	Sentiment SentimentScore
}

// AcceptedItem bundles everything persisted for a kept post.
type AcceptedItem struct {
	Item     ContentItem
	Verdict  FilterVerdict
	Comments []CommentRecord
}

// RejectedItem is a discarded post together with its verdict.
type RejectedItem struct {
	Item    ContentItem
	Verdict FilterVerdict
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}
