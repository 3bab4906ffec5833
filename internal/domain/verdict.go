package domain

import (
	"fmt"
	"strings"
)

// ReasonCode is the machine-readable rejection category.
type ReasonCode string

const (
	ReasonNoKeywords       ReasonCode = "no_keywords"
	ReasonExcludedTerm     ReasonCode = "excluded_term"
	ReasonMissingFlair     ReasonCode = "missing_flair"
	ReasonWrongFlair       ReasonCode = "wrong_flair"
	ReasonLowUpvotes       ReasonCode = "low_upvotes"
	ReasonNeutralSentiment ReasonCode = "neutral_sentiment"
	ReasonNeutralThread    ReasonCode = "neutral_thread"
	ReasonLowComments      ReasonCode = "low_comments"
	ReasonProcessingError  ReasonCode = "processing_error"
	ReasonPersistError     ReasonCode = "persist_error"
)

// Reason explains why a post was rejected.
type Reason struct {
	Code   ReasonCode
	Detail string
}

// String renders the human-readable form written to the filtered table.
func (r Reason) String() string {
	switch r.Code {
	case ReasonNoKeywords:
		return "no relevant keywords"
	case ReasonExcludedTerm:
		return "excluded term: " + r.Detail
	case ReasonMissingFlair:
		return "missing flair"
	case ReasonWrongFlair:
		return "wrong flair: " + r.Detail
	case ReasonLowUpvotes:
		return fmt.Sprintf("low upvotes (%s)", r.Detail)
	case ReasonNeutralSentiment:
		return "neutral sentiment"
	case ReasonNeutralThread:
		return "neutral sentiment (including comments)"
	case ReasonLowComments:
		return fmt.Sprintf("low comments (%s)", r.Detail)
	case ReasonProcessingError:
		return "processing error: " + r.Detail
	case ReasonPersistError:
		return "persist error: " + r.Detail
	default:
		if r.Detail == "" {
			return string(r.Code)
		}
		return string(r.Code) + ": " + r.Detail
	}
}

// FilterVerdict is the final decision for one post. It is never mutated after
// construction; WithReason returns a copy.
type FilterVerdict struct {
	Accepted  bool
	Reasons   []Reason
	Sentiment SentimentScore
	// Escalated reports whether the comment thread was consulted.
	Escalated bool
	// Rescued reports whether the thread turned a neutral post into a keeper.
	Rescued         bool
	ReputationTerms []string
}

// NewVerdict builds a verdict that is accepted iff no reasons are given.
func NewVerdict(sentiment SentimentScore, reasons ...Reason) FilterVerdict {
	copied := append([]Reason(nil), reasons...)
	return FilterVerdict{
		Accepted:  len(copied) == 0,
		Reasons:   copied,
		Sentiment: sentiment,
	}
}

// WithReason returns a rejected copy of v carrying an extra reason.
func (v FilterVerdict) WithReason(reason Reason) FilterVerdict {
	out := v
	out.Reasons = append(append([]Reason(nil), v.Reasons...), reason)
	out.ReputationTerms = append([]string(nil), v.ReputationTerms...)
	out.Accepted = false
	return out
}

// Codes returns the reason codes in order.
func (v FilterVerdict) Codes() []string {
	codes := make([]string, 0, len(v.Reasons))
	for _, r := range v.Reasons {
		codes = append(codes, string(r.Code))
	}
	return codes
}

// HasReason reports whether code is among the reasons.
func (v FilterVerdict) HasReason(code ReasonCode) bool {
	for _, r := range v.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// ReasonText joins all reasons with commas.
func (v FilterVerdict) ReasonText() string {
	parts := make([]string, 0, len(v.Reasons))
	for _, r := range v.Reasons {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
