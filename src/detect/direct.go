package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// EventHandlers are the attribute names flagged by the direct-code
// detector when followed by "=".
var EventHandlers = []string{
	"onload", "onerror", "onclick", "onmouseover", "onmouseout",
	"onfocus", "onblur", "onchange", "onsubmit", "onreset",
	"onmousedown", "onmouseup", "onmousemove", "onkeydown", "onkeyup",
	"onabort", "onunload", "onresize", "onscroll",
	"onbegin", "onend", "onrepeat", "onactivate", "onfocusin", "onfocusout",
}

var (
	scriptTagPattern     = regexp.MustCompile(`(?i)<script\b`)
	phpTagPattern        = regexp.MustCompile(`(?i)<\?(?:php|=)`)
	documentWritePattern = regexp.MustCompile(`(?i)document\.write`)
	evalPattern          = regexp.MustCompile(`(?i)\beval\s*\(`)

	eventPatterns = compileEvents(EventHandlers)
)

type eventPattern struct {
	name string
	re   *regexp.Regexp
}

func compileEvents(names []string) []eventPattern {
	out := make([]eventPattern, len(names))
	for i, n := range names {
		out[i] = eventPattern{name: n, re: regexp.MustCompile(`(?i)\b` + n + `\s*=`)}
	}
	return out
}

// DirectCode matches literal script constructs in the raw bytes.
type DirectCode struct{}

func (DirectCode) Name() string  { return "direct_code" }
func (DirectCode) Priority() int { return 10 }

func (DirectCode) Detect(in Input) []threat.Finding {
	var out []threat.Finding
	raw := in.Raw

	if loc := scriptTagPattern.FindStringIndex(raw); loc != nil {
		out = append(out, threat.NewFinding(threat.TypeScriptTag, threat.SeverityCritical,
			"Contains <script> tags which can execute JavaScript", snippet(raw, loc)))
	}
	if loc := phpTagPattern.FindStringIndex(raw); loc != nil {
		out = append(out, threat.NewFinding(threat.TypePHPTag, threat.SeverityCritical,
			"Contains PHP execution tags", snippet(raw, loc)))
	}
	for _, ev := range eventPatterns {
		if ev.re.MatchString(raw) {
			out = append(out, threat.NewFinding(threat.TypeJSEventHandler, threat.SeverityHigh,
				fmt.Sprintf("Contains JavaScript event handler: %s", ev.name), ev.name))
		}
	}
	if loc := documentWritePattern.FindStringIndex(raw); loc != nil {
		out = append(out, threat.NewFinding(threat.TypeDocumentWrite, threat.SeverityHigh,
			"Contains document.write() which can modify page content", snippet(raw, loc)))
	}
	if loc := evalPattern.FindStringIndex(raw); loc != nil {
		out = append(out, threat.NewFinding(threat.TypeEvalFunction, threat.SeverityCritical,
			"Contains eval() function which can execute arbitrary code", snippet(raw, loc)))
	}
	return out
}

// snippetContext is how many bytes after a match are kept as evidence.
const snippetContext = 40

// snippet returns the match at loc plus a little trailing context.
func snippet(s string, loc []int) string {
	end := loc[1] + snippetContext
	if end > len(s) {
		end = len(s)
	}
	return threat.Truncate(strings.ToValidUTF8(s[loc[0]:end], ""), threat.MaxPatternLen)
}
