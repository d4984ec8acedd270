package card

import (
	"strings"
	"unicode/utf8"
)

// wrapWords fills lines greedily with whole words while the measured width
// stays strictly under budget. A single word wider than budget gets its own
// line.
func wrapWords(text string, budget float64, measure func(string) float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) < budget {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// cardCode is the identifier as printed and encoded on the card.
func cardCode(identifier string) string {
	return truncateRunes(strings.ToUpper(strings.TrimSpace(identifier)), maxCodeRunes)
}
