package app

import (
	"regexp"
	"strings"
)

// The longest statements here are the subscription upsert and the
// reserve_usage call; 300 runes keeps either readable in one span attribute.
const spanQueryMaxLen = 300

var spanQuerySpaces = regexp.MustCompile(`\s+`)

func traceQuery(query string) string {
	q := spanQuerySpaces.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(q) > spanQueryMaxLen {
		return q[:spanQueryMaxLen] + "..."
	}
	return q
}
