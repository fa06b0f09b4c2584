package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// markdownSpecials are the characters Discord markdown treats as formatting.
// Brackets are included because announcement fields use masked links.
const markdownSpecials = "\\*_~`|>[]#"

// EscapeMarkdown neutralizes markdown formatting in s by prefixing every
// formatting rune with a backslash. The result renders as the literal input.
func EscapeMarkdown(s string) string {
	if !strings.ContainsAny(s, markdownSpecials) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsMarkdownSpecial reports whether r would start or close a formatting span.
func IsMarkdownSpecial(r rune) bool {
	return strings.ContainsRune(markdownSpecials, r)
}

// CollapseWhitespace trims s and folds runs of blank lines that scraped
// descriptions tend to carry into single line breaks. The result is NFC
// normalized so a truncation by runes never splits a base letter from its
// combining accent.
func CollapseWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(norm.NFC.String(s), "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
