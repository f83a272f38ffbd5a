package models

import "time"

// Outcome describes how a crawl run ended.
type Outcome string

const (
	OutcomeTargetReached Outcome = "target_reached"
	OutcomeExhausted     Outcome = "exhausted"
	OutcomeFailed        Outcome = "failed"
)

// CrawlResult holds the overall result of one crawl run.
type CrawlResult struct {
	RunID           string
	Query           string
	SinkID          string
	Outcome         Outcome
	Qualifying      int
	Target          int
	PlacesVisited   []PlaceName
	RecordCount     int
	SkippedListings int
	RecordsByStatus map[Status]int
	StartTime       time.Time
	EndTime         time.Time
}
