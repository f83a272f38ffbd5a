package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/leadscout/models"
)

// ValidateFacts ensures the automation captured enough to classify a listing.
func ValidateFacts(f models.ListingFacts) error {
	if strings.TrimSpace(f.SourceURL) == "" {
		return fmt.Errorf("listing missing source url")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("listing missing name for %s", f.SourceURL)
	}
	return nil
}

// NormalizeFacts trims whitespace and strips label prefixes the listing view
// puts in accessibility text ("Address: ...", "Phone: ...").
func NormalizeFacts(f models.ListingFacts) models.ListingFacts {
	f.SourceURL = strings.TrimSpace(f.SourceURL)
	f.Name = strings.TrimSpace(f.Name)
	f.Address = trimLabel(f.Address, "Address:")
	f.Phone = trimLabel(f.Phone, "Phone:")
	f.PrimaryWebsite = strings.TrimSpace(f.PrimaryWebsite)
	return f
}

func trimLabel(text, label string) string {
	text = strings.TrimSpace(text)
	if len(text) >= len(label) && strings.EqualFold(text[:len(label)], label) {
		text = text[len(label):]
	}
	return strings.TrimSpace(text)
}
