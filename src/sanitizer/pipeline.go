package sanitizer

import (
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
)

// Pipeline executes an ordered sequence of Steps against one document.
// Later steps rely on earlier ones: dangerous subtrees are gone before the
// allow-list walk, and both element passes finish before attributes are
// inspected.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from the given steps. Execution order
// matches the slice order.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// DefaultPipeline returns the three rewriting steps in their required order.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		DangerousElements{},
		ElementAllowList{},
		AttributeFilter{},
	)
}

// Process runs every step and returns all removals in step order.
func (p *Pipeline) Process(doc *svgdoc.Document, pol *policy.Policy) []Removal {
	var removed []Removal
	for _, s := range p.steps {
		removed = append(removed, s.Apply(doc.Root, pol)...)
	}
	return removed
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}
