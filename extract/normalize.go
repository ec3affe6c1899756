package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizeText prepares row text for matching: NFKC folds full-width
// characters OCR sometimes produces into their ASCII forms, control
// characters are dropped, and runs of whitespace collapse to single
// spaces.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// numericRepairs are the classic OCR letter-for-digit confusions,
// applied only to tokens that are supposed to be numbers.
var numericRepairs = map[rune]rune{
	'O': '0',
	'o': '0',
	'l': '1',
	'I': '1',
}

// repairNumeric rewrites letter-for-digit confusions in a token that
// should be numeric. The second return reports whether any character
// changed, so callers can discount the match.
func repairNumeric(s string) (string, bool) {
	repaired := false
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if d, ok := numericRepairs[r]; ok {
			out = append(out, d)
			repaired = true
			continue
		}
		out = append(out, r)
	}
	return string(out), repaired
}
