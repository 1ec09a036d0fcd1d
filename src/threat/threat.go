// Package threat holds the stable finding vocabulary shared by the
// detectors, the store and every presentation layer.
package threat

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Severities lists every severity from lowest to highest.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Rank returns the ordinal of s. Unknown values rank below low.
func (s Severity) Rank() int {
	if r, ok := severityOrder[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at or above floor.
func (s Severity) AtLeast(floor Severity) bool {
	return s.Rank() >= floor.Rank()
}

func (s Severity) Valid() bool {
	_, ok := severityOrder[s]
	return ok
}

// ParseSeverity validates a severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Type identifies the kind of evidence a Finding records.
type Type string

const (
	TypeScriptTag              Type = "script_tag"
	TypePHPTag                 Type = "php_tag"
	TypeJSEventHandler         Type = "js_event_handler"
	TypeDocumentWrite          Type = "document_write"
	TypeEvalFunction           Type = "eval_function"
	TypeMalformedXML           Type = "malformed_xml"
	TypeDangerousElement       Type = "dangerous_element"
	TypeNestedSVG              Type = "nested_svg"
	TypeForeignObject          Type = "foreign_object"
	TypeJavascriptHref         Type = "javascript_href"
	TypeSuspiciousDataURI      Type = "suspicious_data_uri"
	TypeExternalNonMedia       Type = "external_non_media"
	TypeCSSExpression          Type = "css_expression"
	TypeSuspiciousExternalFile Type = "suspicious_external_file"
	TypeSuspiciousURLParams    Type = "suspicious_url_params"
	TypeMaliciousBase64        Type = "malicious_base64"
	TypeHiddenURLEncoded       Type = "hidden_url_encoded"
	TypeHiddenHTMLEntities     Type = "hidden_html_entities"
	TypeObfuscationPattern     Type = "obfuscation_pattern"
	TypeSuspiciousFunction     Type = "suspicious_function"
	TypeBrowserAPIAccess       Type = "browser_api_access"
)

// MaxPatternLen bounds Finding.Pattern for storage.
const MaxPatternLen = 120

// Finding is one piece of evidence. Values are never mutated after a
// detector returns them.
type Finding struct {
	Type        Type     `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Pattern     string   `json:"pattern"`
}

// NewFinding builds a Finding with the pattern truncated to MaxPatternLen
// runes.
func NewFinding(typ Type, sev Severity, description, pattern string) Finding {
	return Finding{
		Type:        typ,
		Severity:    sev,
		Description: description,
		Pattern:     Truncate(pattern, MaxPatternLen),
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Classify returns the highest severity among findings, or low when there
// are none. Counts carry no weight.
func Classify(findings []Finding) Severity {
	level := SeverityLow
	for _, f := range findings {
		if f.Severity.Rank() > level.Rank() {
			level = f.Severity
		}
	}
	return level
}
