package parser

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+`)

// EmailFilter drops address-like matches that are really asset names, vendor
// artefacts or placeholders.
type EmailFilter struct {
	Extensions   []string
	Vendors      []string
	Placeholders []string
}

// DefaultEmailFilter mirrors what shows up in scraped business homepages.
func DefaultEmailFilter() EmailFilter {
	return EmailFilter{
		Extensions:   []string{"png", "jpg", "jpeg", "gif", "css", "js", "webp", "svg"},
		Vendors:      []string{"sentry", "wix", "node_modules"},
		Placeholders: []string{"example.com", "domain.com"},
	}
}

// Allows reports whether candidate survives the filter.
func (f EmailFilter) Allows(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, ext := range f.Extensions {
		if strings.HasSuffix(lower, "."+strings.TrimPrefix(ext, ".")) {
			return false
		}
	}
	for _, vendor := range f.Vendors {
		if strings.Contains(lower, vendor) {
			return false
		}
	}
	for _, placeholder := range f.Placeholders {
		if strings.Contains(lower, placeholder) {
			return false
		}
	}
	return true
}

// ExtractEmails returns the distinct surviving matches in document order.
func ExtractEmails(content string, filter EmailFilter) []string {
	matches := emailPattern.FindAllString(content, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		if filter.Allows(m) {
			out = append(out, m)
		}
	}
	return out
}

