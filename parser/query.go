// Package parser holds the pure text rules of the crawler: query decomposition,
// domain matching, email extraction and sink naming.
package parser

import (
	"regexp"
	"strings"

	"github.com/aluiziolira/leadscout/models"
)

const querySeparator = " in "

// Decompose splits "<topic> in <place>" into its topic and seed place.
// The place is the text after the last separator and the topic the text before
// the first one. Without a separator both halves are the whole query.
func Decompose(query string) (topic string, place models.PlaceName) {
	first := strings.Index(query, querySeparator)
	if first < 0 {
		return query, models.PlaceName(query)
	}
	last := strings.LastIndex(query, querySeparator)
	return query[:first], models.PlaceName(query[last+len(querySeparator):])
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// SinkID derives the output file name for a query.
func SinkID(query, extension string) string {
	base := nonAlphanumeric.ReplaceAllString(strings.ToLower(query), "_")
	base = strings.Trim(base, "_")
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return base + extension
}
