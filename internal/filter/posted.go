package filter

import (
	"regexp"
	"strings"
)

var (
	relativeTimeRegex = regexp.MustCompile(`(?i)\b(ago|just now|reposted|minutes?|hours?|days?|weeks?|months?)\b`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// LooksLikePostedTime reports whether text reads like a relative posting
// time ("3 days ago", "Reposted 1 week ago", "Just now").
func LooksLikePostedTime(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > 80 {
		return false
	}
	return relativeTimeRegex.MatchString(text)
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}
