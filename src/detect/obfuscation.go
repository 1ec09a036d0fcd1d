package detect

import (
	"fmt"
	"regexp"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

type namedPattern struct {
	label string
	re    *regexp.Regexp
}

var obfuscationPatterns = []namedPattern{
	{"String.fromCharCode obfuscation", regexp.MustCompile(`(?i)String\.fromCharCode`)},
	{"Hexadecimal string obfuscation", regexp.MustCompile(`(?i)['"](?:\\x[0-9a-f]{2})+['"]`)},
	{"unescape() function", regexp.MustCompile(`(?i)\bunescape\s*\(`)},
	{"setTimeout() function", regexp.MustCompile(`(?i)\bsetTimeout\s*\(`)},
	{"setInterval() function", regexp.MustCompile(`(?i)\bsetInterval\s*\(`)},
}

// SuspiciousFunctions are call names flagged at medium severity.
var SuspiciousFunctions = []string{
	"alert", "confirm", "prompt", "open", "close", "focus", "blur",
	"print", "navigate", "execScript", "attachEvent", "detachEvent",
}

// BrowserGlobals are object prefixes whose property access is flagged.
var BrowserGlobals = []string{
	"window", "document", "location", "navigator",
	"history", "screen", "localStorage", "sessionStorage",
}

var (
	functionPatterns = compileNamed(SuspiciousFunctions, `(?i)\b%s\s*\(`)
	globalPatterns   = compileNamed(BrowserGlobals, `(?i)\b%s\.`)
)

func compileNamed(names []string, format string) []namedPattern {
	out := make([]namedPattern, len(names))
	for i, n := range names {
		out[i] = namedPattern{label: n, re: regexp.MustCompile(fmt.Sprintf(format, regexp.QuoteMeta(n)))}
	}
	return out
}

// Obfuscation flags code-hiding idioms, risky calls and browser global
// access. Each distinct pattern yields at most one finding.
type Obfuscation struct{}

func (Obfuscation) Name() string  { return "obfuscation" }
func (Obfuscation) Priority() int { return 60 }

func (Obfuscation) Detect(in Input) []threat.Finding {
	var out []threat.Finding
	for _, p := range obfuscationPatterns {
		if loc := p.re.FindStringIndex(in.Raw); loc != nil {
			out = append(out, threat.NewFinding(threat.TypeObfuscationPattern, threat.SeverityHigh,
				"Obfuscation technique detected: "+p.label, snippet(in.Raw, loc)))
		}
	}
	for _, p := range functionPatterns {
		if p.re.MatchString(in.Raw) {
			out = append(out, threat.NewFinding(threat.TypeSuspiciousFunction, threat.SeverityMedium,
				fmt.Sprintf("Suspicious function call: %s()", p.label), p.label+"() detected"))
		}
	}
	for _, p := range globalPatterns {
		if p.re.MatchString(in.Raw) {
			out = append(out, threat.NewFinding(threat.TypeBrowserAPIAccess, threat.SeverityMedium,
				fmt.Sprintf("Access to browser API: %s.", p.label), p.label))
		}
	}
	return out
}
