package domain

import "time"

// SpooledRow is an output row that could not be delivered to its sink
// and was persisted locally for a later replay.
type SpooledRow struct {
	ID          int64
	RunID       string
	Destination string
	Row         OutputRow
	Cause       string
	SpooledAt   time.Time
}
