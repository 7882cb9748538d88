// Package htmlsanitize strips markup from user-supplied text before it is
// stored. Group names, descriptions, and display names are plain text; any
// tags a client smuggles in are removed here.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean removes all HTML from s and trims surrounding whitespace.
func Clean(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
