package model

import "time"

// HealthEvent is a farmer-reported condition attached to an observation.
type HealthEvent string

const (
	HealthEventNone     HealthEvent = "none"
	HealthEventOffFeed  HealthEvent = "off_feed"
	HealthEventLame     HealthEvent = "lame"
	HealthEventMastitis HealthEvent = "mastitis"
	HealthEventCalving  HealthEvent = "calving"
	HealthEventOther    HealthEvent = "other"
)

// ValidHealthEvent reports whether s is a known health event. The empty
// string is accepted and normalised to "none" at ingest.
func ValidHealthEvent(s string) bool {
	switch HealthEvent(s) {
	case HealthEventNone, HealthEventOffFeed, HealthEventLame,
		HealthEventMastitis, HealthEventCalving, HealthEventOther:
		return true
	}
	return s == ""
}

// Source tags where an observation entered the system.
type Source string

const (
	SourceManual Source = "manual"
	SourceCSV    Source = "csv"
	SourceVoice  Source = "voice"
	SourceXLSX   Source = "xlsx"
)

// Observation is one accepted farm record. Observations are append-only:
// the log is the source of truth for the data-and-records views and entries
// are never mutated or deleted. Identical re-submissions are deliberately
// not deduplicated; a farmer may log the same event twice on purpose.
type Observation struct {
	ID          string      `json:"id"`
	CowID       int         `json:"cow_id"`
	YieldKg     *float64    `json:"yield_kg,omitempty"`
	Pen         string      `json:"pen,omitempty"`
	HealthEvent HealthEvent `json:"health_event"`
	Notes       string      `json:"notes,omitempty"`
	Source      Source      `json:"source"`
	Timestamp   time.Time   `json:"timestamp"`
}
