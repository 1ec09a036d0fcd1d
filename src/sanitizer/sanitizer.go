package sanitizer

import (
	"fmt"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
)

// Sanitizer resolves policies from a catalog and runs the step pipeline.
// It holds no per-call state and is safe for concurrent use.
type Sanitizer struct {
	catalog  *policy.Catalog
	limits   svgdoc.Limits
	pipeline *Pipeline
}

// New creates a Sanitizer with the default pipeline.
func New(catalog *policy.Catalog, limits svgdoc.Limits) *Sanitizer {
	return &Sanitizer{catalog: catalog, limits: limits, pipeline: DefaultPipeline()}
}

// Sanitize parses raw, rewrites it under the named policy, renders
// canonical markup and verifies the rendering. On any error the Result
// carries VerdictBlock and no content.
func (s *Sanitizer) Sanitize(raw []byte, policyName string) (Result, error) {
	blocked := Result{Verdict: VerdictBlock, Policy: policyName}

	pol, err := s.catalog.Lookup(policyName)
	if err != nil {
		return blocked, err
	}

	doc, err := svgdoc.Parse(raw, s.limits)
	if err != nil {
		return blocked, &ParseError{Err: err}
	}

	var removed []Removal
	for _, construct := range doc.Skipped {
		removed = append(removed, Removal{Step: "render", Kind: KindProlog, Element: construct, Reason: "not rendered"})
	}
	removed = append(removed, s.pipeline.Process(doc, pol)...)

	out := doc.Render()
	if err := verify(out, pol, s.limits); err != nil {
		return blocked, err
	}

	res := Result{Verdict: VerdictPass, Policy: pol.Name(), Content: out, Removed: removed}
	if w, h, ok := doc.Dimensions(); ok {
		res.Width, res.Height = w, h
	}
	if len(removed) > 0 {
		res.Verdict = VerdictModify
	}
	return res, nil
}

// verify re-parses the rendered output and checks the allow-list closure.
func verify(out []byte, pol *policy.Policy, lim svgdoc.Limits) error {
	doc, err := svgdoc.Parse(out, lim)
	if err != nil {
		return &PolicyViolation{Policy: pol.Name(), Reason: fmt.Sprintf("output does not parse: %v", err)}
	}
	for _, el := range doc.Elements() {
		if !pol.AllowsElement(el.Name) {
			return &PolicyViolation{Policy: pol.Name(), Reason: fmt.Sprintf("element <%s> not allowed", el.Name)}
		}
		for name, value := range el.Attrs.All() {
			if reason := attributeVerdict(name, value, pol); reason != "" {
				return &PolicyViolation{Policy: pol.Name(), Reason: fmt.Sprintf("attribute %s on <%s>: %s", name, el.Name, reason)}
			}
		}
	}
	return nil
}
