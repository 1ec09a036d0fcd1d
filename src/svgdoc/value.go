package svgdoc

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeValue folds an attribute value into the form browsers use when
// resolving a URL scheme: NFKC-normalised, lower-cased, with whitespace,
// control and format characters removed. "JaVa&#x9;script:" and
// "ｊａｖａｓｃｒｉｐｔ:" both become "javascript:".
func NormalizeValue(v string) string {
	v = norm.NFKC.String(v)
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if shouldStrip(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func shouldStrip(r rune) bool {
	return unicode.IsSpace(r) || unicode.In(r,
		unicode.Cf, // zero-width joiners, directional marks
		unicode.Co, // private use
		unicode.Cc,
	)
}
