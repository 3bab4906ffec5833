package domain

import "fmt"

// RunState enumerates orchestrator milestones.
type RunState string

const (
	StateIdle             RunState = "idle"
	StateConnecting       RunState = "connecting"
	StateFetching         RunState = "fetching"
	StateEvaluating       RunState = "evaluating"
	StateEscalating       RunState = "escalating"
	StatePersisting       RunState = "persisting"
	StateLoggingRejection RunState = "logging_rejection"
	StateSummarizing      RunState = "summarizing"
	StateCompleted        RunState = "completed"
	StateFailed           RunState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// RunStatistics are the counters of a single run. Processed always equals
// Kept + Filtered.
type RunStatistics struct {
	Processed        int
	Kept             int
	Filtered         int
	CommentsRetained int
	Escalations      int
	Rescued          int
	// Errors counts filtered items that failed to process or persist.
	Errors int
}

// Summary renders the final report line.
func (s RunStatistics) Summary() string {
	return fmt.Sprintf("processed %d posts: kept %d, filtered %d, comments retained %d",
		s.Processed, s.Kept, s.Filtered, s.CommentsRetained)
}

// SourceRequest parametrises a single run against a content source.
type SourceRequest struct {
	// Name is the subreddit or dump label; it also names the output tree.
	Name          string
	Query         string
	Sort          string
	TimeFilter    string
	Limit         int
	IncludeOver18 bool
	Options       map[string]string
}
