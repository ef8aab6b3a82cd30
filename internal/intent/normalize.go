package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lower-cases s with locale-independent rules and trims
// surrounding whitespace. It is total and idempotent.
func Normalize(s string) string {
	// A Caser is stateful, so each call gets its own.
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}
