package billing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// humanize turns an enum value like SEMI_ANNUAL into "Semi Annual".
// A Caser is stateful, so one is built per call.
func humanize(v string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(v, "_", " ")))
}
