package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// CollapseWhitespace replaces every run of whitespace with one space and
// trims the result.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// NormalizeInstructorKey turns a raw instructor string into the key used for
// rating lookups, "O'Brien,  Mary " and "obrien mary" share the key
// "obrien mary".
func NormalizeInstructorKey(name string) string {
	name = whitespaceRegex.ReplaceAllString(name, " ")
	name = punctuationRegex.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return strings.ToLower(name)
}

// SearchName reorders a catalog style "Last, First Middle" name into
// "First Middle Last", names without a comma are only collapsed.
func SearchName(name string) string {
	name = CollapseWhitespace(name)
	last, first, ok := strings.Cut(name, ",")
	if !ok {
		return name
	}
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" {
		return last
	}
	return first + " " + last
}

// PadSubjectCode pads a subject code with trailing spaces to the fixed width
// the catalog's subject option values use ("CSE" becomes "CSE ").
func PadSubjectCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for len(code) < 4 {
		code += " "
	}
	return code
}
