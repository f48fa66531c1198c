package catalog

import (
	"strings"
	"unicode/utf8"
)

// CaptionLimit is the transport's maximum caption length for media messages.
const CaptionLimit = 1024

// TruncateCaption shortens text to at most limit runes. It prefers cutting at
// the last sentence boundary within the limit, then the last word boundary,
// and only then a hard cut. Counting is rune-based so multi-byte text never
// splits mid-character.
func TruncateCaption(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	window := string(runes[:limit])

	if cut := lastSentenceEnd(window); cut > 0 {
		return strings.TrimRight(window[:cut], " \n")
	}
	if cut := strings.LastIndexAny(window, " \n"); cut > 0 {
		return strings.TrimRight(window[:cut], " \n")
	}

	return window
}

// lastSentenceEnd returns the byte offset just past the last sentence
// terminator in s, or 0 when none is found.
func lastSentenceEnd(s string) int {
	best := 0
	for _, term := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(s, term); idx >= 0 && idx+1 > best {
			best = idx + 1
		}
	}

	// A terminator at the very end of the window also counts.
	for _, r := range []string{".", "!", "?"} {
		if strings.HasSuffix(s, r) {
			return len(s)
		}
	}

	return best
}
