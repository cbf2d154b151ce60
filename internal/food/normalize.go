package food

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nonWordPattern matches everything but ASCII word characters and whitespace.
// RE2's \s is ASCII only, so vertical tab, the Unicode separators and the
// byte order mark are listed explicitly.
var nonWordPattern = regexp.MustCompile(`[^\w\s\v\p{Z}\x{FEFF}]`)

// Normalize lowercases text, strips everything that is not an ASCII word
// character or whitespace, and trims the result. Internal spacing is kept.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	return strings.TrimFunc(nonWordPattern.ReplaceAllString(lowered, ""), isSpace)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// leetReplacer undoes the character substitutions people use to dodge word filters.
var leetReplacer = strings.NewReplacer(
	"@", "a",
	"0", "o",
	"1", "i",
	"!", "i",
	"|", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"$", "s",
	"7", "t",
	"\U0001F595", "middlefinger",
)

// NormalizeForFilter folds text into a contiguous run of [a-z0-9] for
// blocked-phrase matching: diacritics and spaces are removed and leetspeak is undone.
func NormalizeForFilter(text string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	folded = leetReplacer.Replace(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// words splits normalized text on whitespace.
func words(normalized string) []string {
	return strings.FieldsFunc(normalized, isSpace)
}
