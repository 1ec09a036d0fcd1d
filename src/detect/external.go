package detect

import (
	"regexp"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

var (
	urlPattern          = regexp.MustCompile(`(?i)https?://[^\s'"<>]+`)
	executableExtension = regexp.MustCompile(`(?i)\.(php|asp|jsp|py|pl|sh|bat|exe|dll)$`)
	suspiciousParams    = regexp.MustCompile(`(?i)[?&](eval|exec|system|cmd|shell)`)
)

// ExternalReference extracts every http(s) URL in the raw content and
// flags executable targets and command-like query parameters.
type ExternalReference struct{}

func (ExternalReference) Name() string  { return "external_reference" }
func (ExternalReference) Priority() int { return 40 }

func (ExternalReference) Detect(in Input) []threat.Finding {
	var out []threat.Finding
	seen := make(map[string]struct{})
	for _, u := range urlPattern.FindAllString(in.Raw, -1) {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		if executableExtension.MatchString(urlPath(u)) {
			out = append(out, threat.NewFinding(threat.TypeSuspiciousExternalFile, threat.SeverityHigh,
				"Reference to potentially executable external file", u))
		}
		if suspiciousParams.MatchString(u) {
			out = append(out, threat.NewFinding(threat.TypeSuspiciousURLParams, threat.SeverityHigh,
				"URL with suspicious query parameters", u))
		}
	}
	return out
}
