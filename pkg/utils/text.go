package utils

import "strings"

// TruncateRunes returns s cut to at most n runes, without an ellipsis.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// RuneCount returns the number of runes in s.
func RuneCount(s string) int {
	return len([]rune(s))
}

// SplitSentences splits text into sentence-level segments on terminal
// punctuation (. ! ?). Whitespace-only segments are dropped. Spanish opening
// marks (¿ ¡) stay attached to their sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
