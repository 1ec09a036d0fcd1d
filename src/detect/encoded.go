package detect

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

var (
	base64Run     = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)
	base64Payload = regexp.MustCompile(`(?i)<script|javascript:|php|eval\(|document\.write`)
	percentEscape = regexp.MustCompile(`(?i)%[0-9a-f]{2}`)
	numericEntity = regexp.MustCompile(`(?i)&#x?[0-9a-f]+;`)
	hiddenPayload = regexp.MustCompile(`(?i)<script|javascript:|eval\(`)
)

const (
	// base64MinBytes ignores decoded runs too short to carry a payload.
	base64MinBytes = 11
	previewLen     = 50
)

// EncodedContent decodes base64 runs, percent-encoding and HTML entities
// looking for script constructs that are not visible in the raw bytes.
// Every loop is bounded by its Limits.
type EncodedContent struct {
	limits Limits
}

// NewEncodedContent returns the detector with zero limits replaced by
// defaults.
func NewEncodedContent(lim Limits) EncodedContent {
	def := DefaultLimits()
	if lim.MaxEncodedRun <= 0 {
		lim.MaxEncodedRun = def.MaxEncodedRun
	}
	if lim.MaxEncodedRuns <= 0 {
		lim.MaxEncodedRuns = def.MaxEncodedRuns
	}
	if lim.MaxDecodeDepth <= 0 {
		lim.MaxDecodeDepth = def.MaxDecodeDepth
	}
	return EncodedContent{limits: lim}
}

func (EncodedContent) Name() string  { return "encoded_content" }
func (EncodedContent) Priority() int { return 50 }

func (e EncodedContent) Detect(in Input) []threat.Finding {
	out := e.base64Findings(in.Raw)

	if s, ok := e.reveals(in.Raw, percentEscape, percentDecode); ok {
		out = append(out, threat.NewFinding(threat.TypeHiddenURLEncoded, threat.SeverityHigh,
			"URL encoded content reveals hidden malicious patterns", "suspicious URL encoding: "+s))
	}
	if s, ok := e.reveals(in.Raw, numericEntity, html.UnescapeString); ok {
		out = append(out, threat.NewFinding(threat.TypeHiddenHTMLEntities, threat.SeverityHigh,
			"HTML entity encoding hides malicious patterns", "suspicious HTML entities: "+s))
	}
	return out
}

func (e EncodedContent) base64Findings(raw string) []threat.Finding {
	var out []threat.Finding
	seen := make(map[string]struct{})
	for _, run := range base64Run.FindAllString(raw, e.limits.MaxEncodedRuns) {
		if _, dup := seen[run]; dup {
			continue
		}
		seen[run] = struct{}{}

		if e.base64Reveals(run, 1) {
			out = append(out, threat.NewFinding(threat.TypeMaliciousBase64, threat.SeverityCritical,
				"Base64 encoded content contains malicious patterns",
				"suspicious base64: "+preview(run)))
		}
	}
	return out
}

// base64Reveals decodes run and reports whether the result, or a base64
// run nested inside it, carries a script payload. depth counts decode
// layers already applied, including this one.
func (e EncodedContent) base64Reveals(run string, depth int) bool {
	if len(run) > e.limits.MaxEncodedRun {
		run = run[:e.limits.MaxEncodedRun]
	}
	decoded, ok := decodeBase64(run)
	if !ok || len(decoded) < base64MinBytes {
		return false
	}
	if base64Payload.Match(decoded) {
		return true
	}
	if depth >= e.limits.MaxDecodeDepth {
		return false
	}
	for _, inner := range base64Run.FindAllString(string(decoded), e.limits.MaxEncodedRuns) {
		if e.base64Reveals(inner, depth+1) {
			return true
		}
	}
	return false
}

// reveals applies decode up to MaxDecodeDepth times and returns a snippet
// of the first layer that shows a payload absent from raw.
func (e EncodedContent) reveals(raw string, trigger *regexp.Regexp, decode func(string) string) (string, bool) {
	if !trigger.MatchString(raw) || hiddenPayload.MatchString(raw) {
		return "", false
	}
	cur := raw
	for range e.limits.MaxDecodeDepth {
		next := decode(cur)
		if next == cur {
			return "", false
		}
		if loc := hiddenPayload.FindStringIndex(next); loc != nil {
			return snippet(next, loc), true
		}
		cur = next
	}
	return "", false
}

// decodeBase64 is lenient about padding and a dangling final character.
func decodeBase64(run string) ([]byte, bool) {
	s := strings.TrimRight(run, "=")
	if len(s)%4 == 1 {
		s = s[:len(s)-1]
	}
	b, err := base64.RawStdEncoding.DecodeString(s)
	return b, err == nil
}

// percentDecode replaces every %XX escape and leaves anything else intact,
// unlike url.QueryUnescape which rejects the whole input on one bad escape.
func percentDecode(s string) string {
	return percentEscape.ReplaceAllStringFunc(s, func(m string) string {
		b, _ := strconv.ParseUint(m[1:], 16, 8)
		return string([]byte{byte(b)})
	})
}

func preview(run string) string {
	if len(run) <= previewLen {
		return run
	}
	return run[:previewLen] + "..."
}
