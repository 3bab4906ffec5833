package domain

// Indeterminate marks a progress event without a known percentage.
const Indeterminate = -1

// DisplayVerdict tags an entry of the scrolling log view.
type DisplayVerdict string

const (
	DisplayAccepted DisplayVerdict = "accepted"
	DisplayFiltered DisplayVerdict = "filtered"
)

// DisplayEntry is one line of the log view.
type DisplayEntry struct {
	Title   string
	Verdict DisplayVerdict
	Detail  string
}

// ProgressEvent is published by the pipeline and drained by the front end.
type ProgressEvent struct {
	Message string
	// Percent is 0..100 or Indeterminate.
	Percent int
	Display *DisplayEntry
	// Final marks the terminal summary event.
	Final bool
}

// Busy builds an indeterminate event.
func Busy(message string) ProgressEvent {
	return ProgressEvent{Message: message, Percent: Indeterminate}
}
