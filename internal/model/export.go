package model

import "time"

// Export is the top-level JSON structure for attempt export.
type Export struct {
	ExportedAt time.Time  `json:"exported_at"`
	Store      string     `json:"store"`
	Count      int        `json:"count"`
	Attempts   []LogEntry `json:"attempts"`
}
