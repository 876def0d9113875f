package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var appIDPattern = regexp.MustCompile(`/app/(\d+)`)

// ExtractAppID finds a Steam app ID embedded in free text, looking for a
// store-URL path segment of the form /app/<digits>. Absence of a match is
// a normal outcome, not an error.
func ExtractAppID(text string) (string, bool) {
	m := appIDPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Truncate bounds s to at most max bytes, cutting on a rune boundary and
// appending an ellipsis when anything was dropped.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	// Back off a partial rune at the cut point.
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
