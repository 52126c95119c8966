package search

import (
	"regexp"
	"strings"
)

// wordPattern matches identifier-like tokens as the word index sees them.
// Hyphens are part of CSS identifiers (nav-bar, max-width).
var wordPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_-]*`)

// NormalizeWhitespace trims the text and collapses every whitespace run into a
// single space, so that ".a  >\n.b" and ".a > .b" compare equal.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EqualsNormalizeWhitespace compares two texts after whitespace normalization
func EqualsNormalizeWhitespace(a, b string) bool {
	return NormalizeWhitespace(a) == NormalizeWhitespace(b)
}

// Words splits text into identifier-like tokens in order of appearance
func Words(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// ExtractSearchWord picks the token used to pre-filter a word-indexed search:
// the first identifier-like token, else the whole normalized text.
func ExtractSearchWord(text string) string {
	normalized := NormalizeWhitespace(text)
	if word := wordPattern.FindString(normalized); word != "" {
		return word
	}
	return normalized
}
