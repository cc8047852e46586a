package domain

import "time"

// FollowUpRecord is one parsed row of the dashboard's follow-ups table.
type FollowUpRecord struct {
	LocationName         string
	UnprocessedFollowUps int
	UnprocessedCalls     int
}

// SnapshotBatch is the ordered output of one scrape run. Every record in the
// batch shares DtSnapshot, taken once when the batch is assembled.
type SnapshotBatch struct {
	DtSnapshot time.Time
	Records    []FollowUpRecord
}

// InsertResult carries the identity and resolved location code returned by
// the insert procedure for one record. Lcode is nil when the destination
// store has no mapping for the location name.
type InsertResult struct {
	InsertedID int64
	Lcode      *string
}

// RunSummary is the outcome of one snapshot run, kept for the status
// endpoint and the closing log line.
type RunSummary struct {
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Skipped      bool      `json:"skipped,omitempty"` // suppressed by the run guard
	RowsScraped  int       `json:"rows_scraped"`
	RowsSkipped  int       `json:"rows_skipped"`
	Inserted     int       `json:"inserted"`
	Failed       int       `json:"failed"`
	MissingLcode []string  `json:"missing_lcode,omitempty"`
	Error        string    `json:"error,omitempty"`
}
