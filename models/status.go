package models

import (
	"encoding/json"
	"fmt"
)

// Status is the outcome of classifying a listing.
type Status int

const (
	StatusOfficialWebsite Status = iota + 1
	StatusNoWebsite
	StatusPlatformOnly
	StatusFoundViaSearch
)

var statusLabels = map[Status]string{
	StatusOfficialWebsite: "Official Website",
	StatusNoWebsite:       "No Website",
	StatusPlatformOnly:    "Platform Only",
	StatusFoundViaSearch:  "Found via Search",
}

func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Label is the short identifier used for metrics and database rows.
func (s Status) Label() string {
	switch s {
	case StatusOfficialWebsite:
		return "official_website"
	case StatusNoWebsite:
		return "no_website"
	case StatusPlatformOnly:
		return "platform_only"
	case StatusFoundViaSearch:
		return "found_via_search"
	default:
		return "unknown"
	}
}

// Qualifies is true for listings with no independently verifiable website.
func (s Status) Qualifies() bool {
	return s == StatusNoWebsite || s == StatusPlatformOnly
}

// MarshalJSON encodes the status as its human label.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the human label.
func (s *Status) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	for status, label := range statusLabels {
		if label == text {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}
