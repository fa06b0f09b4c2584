package text_test

import (
	"strings"
	"testing"

	"workshop-announcer/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "ASCII text", input: "hello", expected: 5},
		{name: "Japanese kanji", input: "日本語", expected: 3},
		{name: "ASCII with emoji", input: "Hello👋", expected: 6},
		{name: "Cyrillic characters", input: "Привет", expected: 6},
		{name: "Empty string", input: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.expected {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "shorter than limit", input: "short", limit: 10, want: "short"},
		{name: "exactly limit", input: "exact", limit: 5, want: "exact"},
		{name: "longer than limit", input: "abcdefghij", limit: 4, want: "abcd..."},
		{name: "multibyte cut on rune boundary", input: "日本語のテキスト", limit: 3, want: "日本語..."},
		{name: "zero limit", input: "abc", limit: 0, want: "..."},
		{name: "empty input", input: "", limit: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.Truncate(tt.input, tt.limit, "..."); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncate_LengthProperty(t *testing.T) {
	const limit = 16
	for l := 0; l <= 40; l++ {
		in := strings.Repeat("é", l)
		got := text.Truncate(in, limit, "...")
		if l <= limit {
			if got != in {
				t.Fatalf("len %d: Truncate modified input within limit: %q", l, got)
			}
			continue
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("len %d: missing ellipsis in %q", l, got)
		}
		if n := text.CountRunes(strings.TrimSuffix(got, "...")); n != limit {
			t.Fatalf("len %d: kept %d runes, want %d", l, n, limit)
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "plain title", want: "plain title"},
		{input: "**bold**", want: `\*\*bold\*\*`},
		{input: "snake_case_name", want: `snake\_case\_name`},
		{input: "~~strike~~ ||spoiler||", want: `\~\~strike\~\~ \|\|spoiler\|\|`},
		{input: "`code`", want: "\\`code\\`"},
		{input: "> quote", want: `\> quote`},
		{input: "[link](https://evil)", want: `\[link\](https://evil)`},
		{input: "# Heading", want: `\# Heading`},
		{input: `back\slash`, want: `back\\slash`},
	}

	for _, tt := range tests {
		if got := text.EscapeMarkdown(tt.input); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// assertNoFormattingSpans re-reads escaped text the way a markdown renderer
// would: a backslash consumes the next rune literally, and any other special
// rune would open a span.
func assertNoFormattingSpans(t *testing.T, s string) {
	t.Helper()
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if text.IsMarkdownSpecial(runes[i]) {
			t.Fatalf("unescaped %q at rune %d in %q", runes[i], i, s)
		}
	}
}

func unescape(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func TestEscapeMarkdown_RoundTrip(t *testing.T) {
	inputs := []string{
		"*_~`|>[]#\\",
		"Tom's __Mod__ Pack [v2] | **BETA**",
		"x\\*y",
		"日本語 *強調* テキスト",
		"",
	}

	for _, in := range inputs {
		escaped := text.EscapeMarkdown(in)
		assertNoFormattingSpans(t, escaped)
		if got := unescape(escaped); got != in {
			t.Errorf("unescape(EscapeMarkdown(%q)) = %q", in, got)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "\n\n  First line  \r\n\r\n\r\n\tSecond line\n\n\n"
	want := "First line\n\nSecond line"
	if got := text.CollapseWhitespace(in); got != want {
		t.Errorf("CollapseWhitespace() = %q, want %q", got, want)
	}
}

func TestCollapseWhitespace_NormalizesToNFC(t *testing.T) {
	decomposed := "Cafe\u0301 lights"

	got := text.CollapseWhitespace(decomposed)

	if got != "Caf\u00e9 lights" {
		t.Errorf("CollapseWhitespace() = %q, want composed form", got)
	}
	if n := text.CountRunes(got); n != 11 {
		t.Errorf("CountRunes() = %d, want 11", n)
	}
}
