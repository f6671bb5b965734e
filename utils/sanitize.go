package utils

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips all markup from client-supplied profile text and returns
// plain text.
func Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}

// SanitizeLimit sanitizes input and truncates it to at most max runes.
func SanitizeLimit(input string, max int) string {
	s := Sanitize(input)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// SanitizeURL keeps absolute http(s) URLs up to max bytes and drops anything else.
func SanitizeURL(input string, max int) string {
	s := strings.TrimSpace(input)
	if s == "" || (max > 0 && len(s) > max) {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}
