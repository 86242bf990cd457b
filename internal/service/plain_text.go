package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plainText strips every tag and returns the text with entities decoded, so
// "Tom & Jerry" is stored as typed. Output must be rendered as text, never
// as HTML.
func plainText(policy *bluemonday.Policy, input string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(input)))
}
