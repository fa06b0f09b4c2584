// Package text provides utilities for text processing shared by the scraper
// and the announcement builder: rune-aware length handling, truncation and
// markdown escaping for chat payloads.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Description limits are expressed in characters, not bytes, so multi-byte
// titles and emoji are counted once each.
//
// Examples:
//
//	CountRunes("hello")     // returns 5
//	CountRunes("日本語")     // returns 3
//	CountRunes("")          // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate returns at most limit runes of s. When s is longer than limit the
// result is the first limit runes followed by suffix; otherwise s is returned
// unchanged. A non-positive limit yields only the suffix for non-empty input.
func Truncate(s string, limit int, suffix string) string {
	if CountRunes(s) <= limit {
		return s
	}
	if limit < 0 {
		limit = 0
	}
	return string([]rune(s)[:limit]) + suffix
}
