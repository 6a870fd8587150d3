package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Results shorter than MinLen are treated as noise, not content.
	MinLen = 10
	// Results longer than MaxLen are cut. Safety cap, not a semantic
	// boundary.
	MaxLen = 8000
)

// symbolFixes rewrites mathematical symbols, including their common
// mis-decoded (UTF-8 read as Latin-1) forms, into word equivalents.
// These are targeted fixes for a known corruption pattern in extracted
// PDF text, not general transliteration. Mojibake sequences come
// first so the replacer matches them before their single-rune parts.
var symbolFixes = strings.NewReplacer(
	"â—¦", " degrees ",
	"âˆ ", " angle ",
	"âˆ ", " angle ",
	"â–³", " triangle ",
	"âˆš", " sqrt ",
	"Ï€", " pi ",
	"°", " degrees ",
	"∠", " angle ",
	"△", " triangle ",
	"√", " sqrt ",
	"π", " pi ",
)

var (
	// Control characters plus the general punctuation,
	// super/subscript, currency and letterlike symbol blocks.
	strippable = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}\x{2000}-\x{206F}\x{2070}-\x{209F}\x{20A0}-\x{20CF}\x{2100}-\x{214F}]`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Normalize cleans raw extracted text. It returns "" for fragments
// that clean down to fewer than MinLen characters and truncates
// anything beyond MaxLen. Idempotent for inputs below the cap.
func Normalize(text string) string {
	s := symbolFixes.Replace(text)
	s = strippable.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < MinLen {
		return ""
	}
	if utf8.RuneCountInString(s) > MaxLen {
		s = strings.TrimSpace(string([]rune(s)[:MaxLen]))
	}
	return s
}
