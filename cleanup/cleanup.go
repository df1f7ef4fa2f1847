// Package cleanup holds label normalization shared by agency
// adapters. Every function is total and idempotent: running it on its
// own output changes nothing.
package cleanup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	spaces       = regexp.MustCompile(`\s+`)
	openParen    = regexp.MustCompile(`\(\s+`)
	closeParen   = regexp.MustCompile(`\s+\)`)
	danglingSeps = " /-,"

	at = regexp.MustCompile(`(?i)\s+at\s+`)

	// Case is fixed per run, so "(2nd" or "/3rd" keep their suffix.
	wordRun = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// Upper-case words up to this many letters are taken as acronyms (UTM,
// GO) and keep their case.
const maxAcronym = 3

// CleanWords returns a whole-word, case-insensitive pattern matching
// any of words.
func CleanWords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CleanAt replaces a standalone "at" with a slash.
func CleanAt(s string) string {
	return ReplaceStable(at, s, " / ")
}

// ReplaceStable applies re until the string stops changing. Patterns
// that consume the delimiters around a word miss back-to-back matches
// in a single pass.
func ReplaceStable(re *regexp.Regexp, s string, repl string) string {
	for {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
}

// CleanLabel collapses whitespace, tidies parentheses, trims dangling
// separators and fixes the case of all-lower and shouting words.
func CleanLabel(label string) string {
	label = spaces.ReplaceAllString(label, " ")
	label = openParen.ReplaceAllString(label, "(")
	label = closeParen.ReplaceAllString(label, ")")
	label = strings.Trim(label, danglingSeps)

	return wordRun.ReplaceAllStringFunc(label, fixCase)
}

func fixCase(word string) string {
	var letters, upper, lower int
	first := true
	for _, r := range word {
		if first {
			first = false
			if unicode.IsDigit(r) {
				return word
			}
		}
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		} else if unicode.IsLower(r) {
			lower++
		}
	}
	switch {
	case letters == 0:
		return word
	case lower == letters, upper == letters && letters > maxAcronym:
		return cases.Title(language.English).String(word)
	}
	return word
}
