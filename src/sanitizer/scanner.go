// Package sanitizer rewrites SVG documents so that only elements and
// attributes allowed by a named policy survive, then verifies the result.
package sanitizer

import (
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
)

// Step is one pass over the document tree. Steps mutate the tree in place
// and report everything they removed.
type Step interface {
	// Name returns a human-readable identifier for logging.
	Name() string

	// Apply rewrites the tree rooted at root under p.
	Apply(root *svgdoc.Element, p *policy.Policy) []Removal
}
