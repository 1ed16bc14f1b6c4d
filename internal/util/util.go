// internal/util/util.go
// Package util holds the small text helpers shared by the CLI and the study façade.
package util

import (
	"strings"
	"unicode/utf8"
)

// Preview returns the first maxRunes runes of text followed by "..." when text
// is longer than that.
func Preview(text string, maxRunes int) string {
	if maxRunes < 0 {
		maxRunes = 0
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "..."
}

// Wrap breaks text into lines of at most width runes at word boundaries.
// Words longer than width are split. Existing line breaks are kept.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		var cur []rune
		flush := func() {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
		}
		for _, w := range words {
			word := []rune(w)
			for len(word) > width {
				flush()
				out = append(out, string(word[:width]))
				word = word[width:]
			}
			if len(cur) > 0 && len(cur)+1+len(word) > width {
				flush()
			}
			if len(cur) > 0 {
				cur = append(cur, ' ')
			}
			cur = append(cur, word...)
		}
		flush()
	}
	return strings.Join(out, "\n")
}

// Indent prefixes every line of text with prefix.
func Indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
