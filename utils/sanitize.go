package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips every tag from user supplied text such as display names
// and chat messages, and trims surrounding whitespace.
func SanitizeText(input string) string {
	// bluemonday escapes what it keeps; the API returns JSON, not HTML
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
