package models

import "time"

// QueryRequest is a question posed to the pipeline with optional filters.
// On the wire the deadline is DeadlineMs (milliseconds); programmatic callers
// may set Deadline directly instead.
type QueryRequest struct {
	Question   string            `json:"question"`
	Filters    map[string]string `json:"filters,omitempty"`
	TopK       int               `json:"top_k,omitempty"`
	DeadlineMs int64             `json:"deadline_ms,omitempty"`
	Deadline   time.Duration     `json:"-"`
}

// Validate checks the request and applies defaults. An empty question is a
// configuration error; TopK is normalized into [1, 50]; DeadlineMs is
// converted into Deadline when the caller did not set one.
func (q *QueryRequest) Validate() error {
	if q.Question == "" {
		return NewConfigurationError("question", "cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > 50 {
		q.TopK = 50
	}
	if q.DeadlineMs < 0 {
		return NewConfigurationError("deadline_ms", "must be non-negative, got %d", q.DeadlineMs)
	}
	if q.Deadline == 0 && q.DeadlineMs > 0 {
		q.Deadline = time.Duration(q.DeadlineMs) * time.Millisecond
	}
	return nil
}

// Filter returns the request filters as a MetadataFilter.
func (q *QueryRequest) Filter() MetadataFilter {
	if len(q.Filters) == 0 {
		return nil
	}
	return MetadataFilter(q.Filters)
}
