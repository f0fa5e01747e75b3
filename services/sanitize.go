package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizePlainText strips all markup from user supplied text. The policy
// escapes entities, so they are decoded again to store the text as typed.
func SanitizePlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(s)))
}
