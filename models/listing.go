// Package models defines data structures for the lead crawler.
package models

import "strings"

// PlaceName identifies a geographic area used to scope a listings search.
type PlaceName string

// Key returns the case-insensitive identity of the place.
func (p PlaceName) Key() string {
	return strings.ToLower(strings.TrimSpace(string(p)))
}

// CrawlQuery is a single topic search scoped to one place.
type CrawlQuery struct {
	Topic string
	Place PlaceName
}

func (q CrawlQuery) String() string {
	return q.Topic + " in " + string(q.Place)
}

// ListingFacts holds the raw facts read from one listing view.
// PrimaryWebsite is empty when the listing exposes no authoritative link.
type ListingFacts struct {
	SourceURL      string
	Name           string
	Address        string
	Phone          string
	PrimaryWebsite string
}

// HasWebsite reports whether the listing exposes a website link.
func (f ListingFacts) HasWebsite() bool {
	return strings.TrimSpace(f.PrimaryWebsite) != ""
}

// ListingRecord is the classified output for one listing.
type ListingRecord struct {
	SourceURL string `csv:"source_url" json:"sourceUrl"`
	Name      string `csv:"name" json:"name"`
	Address   string `csv:"address" json:"address"`
	Phone     string `csv:"phone" json:"phone"`
	Website   string `csv:"website" json:"website"`
	Email     string `csv:"email" json:"email,omitempty"`
	Status    Status `csv:"status" json:"status"`
}

// Qualifies reports whether the record counts toward the crawl target.
func (r ListingRecord) Qualifies() bool {
	return r.Status.Qualifies()
}

// Progress is a snapshot of the qualifying count against the target.
type Progress struct {
	Qualifying int `json:"qualifying"`
	Target     int `json:"target"`
}
