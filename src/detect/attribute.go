package detect

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

var (
	mediaExtension = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|svg|mp3|mp4|wav|ogg)$`)
	cssExpression  = regexp.MustCompile(`(?i)expression\s*\(`)
)

// AttributePayload inspects attribute values for script URLs, non-image
// data URIs, non-media external references and CSS expressions.
type AttributePayload struct{}

func (AttributePayload) Name() string  { return "attribute_payload" }
func (AttributePayload) Priority() int { return 30 }

func (AttributePayload) Detect(in Input) []threat.Finding {
	var out []threat.Finding
	for _, a := range attributes(in) {
		name := strings.ToLower(a.name)
		folded := svgdoc.NormalizeValue(a.value)
		evidence := fmt.Sprintf("<%s %s=%q>", a.element, a.name, a.value)

		if isLinkAttr(name) && strings.HasPrefix(folded, "javascript:") {
			out = append(out, threat.NewFinding(threat.TypeJavascriptHref, threat.SeverityCritical,
				fmt.Sprintf("JavaScript URL in %s attribute", a.name), evidence))
		}
		if strings.HasPrefix(folded, "data:") && !strings.HasPrefix(folded, "data:image/") {
			out = append(out, threat.NewFinding(threat.TypeSuspiciousDataURI, threat.SeverityHigh,
				fmt.Sprintf("Non-image data URI in %s attribute", a.name), evidence))
		}
		if (isLinkAttr(name) || name == "src") && isExternal(folded) && !isMedia(a.value) {
			out = append(out, threat.NewFinding(threat.TypeExternalNonMedia, threat.SeverityMedium,
				fmt.Sprintf("External reference to non-media resource in %s attribute", a.name), evidence))
		}
		if name == "style" && cssExpression.MatchString(a.value) {
			out = append(out, threat.NewFinding(threat.TypeCSSExpression, threat.SeverityHigh,
				"CSS expression() found in style attribute", evidence))
		}
	}
	return out
}

func isLinkAttr(name string) bool {
	return name == "href" || name == "xlink:href"
}

func isExternal(folded string) bool {
	return strings.HasPrefix(folded, "http://") || strings.HasPrefix(folded, "https://")
}

// isMedia checks the extension of the URL path, so a query string or
// fragment does not hide or fake the file type.
func isMedia(raw string) bool {
	return mediaExtension.MatchString(urlPath(raw))
}

func urlPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	return u.Path
}
