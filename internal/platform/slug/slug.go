package slug

import (
	"regexp"
	"strings"
)

// MaxLen caps slugs so plan files stay readable when a dump entry is a
// whole paragraph.
const MaxLen = 40

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases the input and joins its alphanumeric runs with hyphens.
// Long slugs are cut back to the last whole word that fits.
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLen {
		s = s[:MaxLen]
		if cut := strings.LastIndexByte(s, '-'); cut > 0 {
			s = s[:cut]
		}
		s = strings.Trim(s, "-")
	}
	if s == "" {
		return "task"
	}
	return s
}
