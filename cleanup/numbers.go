package cleanup

import (
	"regexp"
	"strings"
)

var ordinals = []rewrite{
	{regexp.MustCompile(`(?i)\bfirst\s`), "1st "},
	{regexp.MustCompile(`(?i)\bsecond\s`), "2nd "},
	{regexp.MustCompile(`(?i)\bthird\s`), "3rd "},
	{regexp.MustCompile(`(?i)\bfourth\s`), "4th "},
	{regexp.MustCompile(`(?i)\bfifth\s`), "5th "},
	{regexp.MustCompile(`(?i)\bsixth\s`), "6th "},
	{regexp.MustCompile(`(?i)\bseventh\s`), "7th "},
	{regexp.MustCompile(`(?i)\beighth\s`), "8th "},
	{regexp.MustCompile(`(?i)\bninth\s`), "9th "},
}

// "2ND", "21St". A spaced suffix is left alone: "3 St" is a street.
var ordinalSuffix = regexp.MustCompile(`(?i)\b(\d+)(st|nd|rd|th)\b`)

// CleanNumbers turns written ordinals into numerals and normalizes
// ordinal suffixes.
func CleanNumbers(s string) string {
	for _, rw := range ordinals {
		s = rw.re.ReplaceAllString(s, rw.repl)
	}
	return ordinalSuffix.ReplaceAllStringFunc(s, func(m string) string {
		sub := ordinalSuffix.FindStringSubmatch(m)
		return sub[1] + strings.ToLower(sub[2])
	})
}
