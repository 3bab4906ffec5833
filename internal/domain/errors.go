package domain

import "errors"

var (
	// ErrSourceUnavailable marks setup failures; a run cannot start.
	ErrSourceUnavailable = errors.New("content source unavailable")
	// ErrItemFetch marks a failure confined to one item; the stream goes on.
	ErrItemFetch = errors.New("item fetch failed")
	// ErrPersistence marks lost output.
	ErrPersistence = errors.New("persistence failed")
	// ErrMalformedText is returned for text that cannot be scored.
	ErrMalformedText = errors.New("malformed text")
	// ErrNoAffect is returned when a text carries no emotion signal.
	ErrNoAffect = errors.New("no affect words")
)

// ItemError ties a per-item failure to the item it concerns.
type ItemError struct {
	ItemID string
	Title  string
	Err    error
}

func (e *ItemError) Error() string {
	return "item " + e.ItemID + ": " + e.Err.Error()
}

func (e *ItemError) Unwrap() []error {
	return []error{ErrItemFetch, e.Err}
}
