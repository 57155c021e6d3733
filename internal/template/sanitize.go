package template

import (
	"regexp"
	"strings"
)

var (
	reIllegalPathChars = regexp.MustCompile(`[\\,#%&{}/*<>$'":@•|?]`)
	reNewlines         = regexp.MustCompile(`\r?\n`)
)

// Sanitize strips characters that are unsafe in file names and turns newlines
// into spaces. Only the first double space is collapsed; later runs of spaces
// survive.
func Sanitize(s string) string {
	s = reIllegalPathChars.ReplaceAllString(s, "")
	s = reNewlines.ReplaceAllString(s, " ")
	return strings.Replace(s, "  ", " ", 1)
}
