package sanitizer

import (
	"regexp"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
)

var (
	// handlerValue matches values that look like an inline event handler,
	// e.g. `onload=alert(1)` smuggled into an allowed attribute.
	handlerValue = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)

	// scriptSchemes are rejected anywhere in the folded value, which also
	// covers CSS url(javascript:...).
	scriptSchemes = []string{"javascript:", "vbscript:", "livescript:"}
)

// DangerousValue reports why an attribute value is executable, or "" when
// it is safe. The value is folded with svgdoc.NormalizeValue first, so
// case, whitespace, control characters and compatibility forms cannot hide
// a scheme.
func DangerousValue(value string) string {
	folded := svgdoc.NormalizeValue(value)
	for _, scheme := range scriptSchemes {
		if strings.Contains(folded, scheme) {
			return "script scheme " + scheme
		}
	}
	if strings.HasPrefix(folded, "data:") && !strings.HasPrefix(folded, "data:image/") {
		return "non-image data URI"
	}
	if strings.Contains(folded, "expression(") {
		return "CSS expression"
	}
	if handlerValue.MatchString(value) {
		return "event handler value"
	}
	return ""
}
