// Package detect runs independent pattern detectors over raw SVG content
// and its parsed tree, producing typed threat findings.
package detect

import (
	"slices"
	"sync"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// Input is what every detector sees. Doc is nil when the raw content did
// not parse; ParseErr then holds the reason.
type Input struct {
	Raw      string
	Doc      *svgdoc.Document
	ParseErr error
}

// NewInput parses raw once so that all detectors share the tree.
func NewInput(raw []byte, lim svgdoc.Limits) Input {
	in := Input{Raw: string(raw)}
	in.Doc, in.ParseErr = svgdoc.Parse(raw, lim)
	return in
}

// Detector inspects an Input. Implementations must be pure: no shared
// state, no I/O.
type Detector interface {
	Name() string
	// Priority orders findings across detectors; lower runs first.
	Priority() int
	Detect(in Input) []threat.Finding
}

// Limits bounds the decoding work of the encoded-content detector.
type Limits struct {
	// MaxEncodedRun truncates each base64 run before decoding.
	MaxEncodedRun int
	// MaxEncodedRuns caps how many base64 runs are decoded per document.
	MaxEncodedRuns int
	// MaxDecodeDepth is the number of nested decode layers inspected.
	MaxDecodeDepth int
}

const (
	DefaultMaxEncodedRun  = 64 << 10
	DefaultMaxEncodedRuns = 256
	DefaultMaxDecodeDepth = 2
)

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxEncodedRun:  DefaultMaxEncodedRun,
		MaxEncodedRuns: DefaultMaxEncodedRuns,
		MaxDecodeDepth: DefaultMaxDecodeDepth,
	}
}

// Engine fans an Input out to its detectors and concatenates the results.
type Engine struct {
	detectors []Detector
}

// NewEngine returns an engine over ds, ordered by priority. Detectors with
// equal priority keep their argument order.
func NewEngine(ds ...Detector) *Engine {
	sorted := slices.Clone(ds)
	slices.SortStableFunc(sorted, func(a, b Detector) int {
		return a.Priority() - b.Priority()
	})
	return &Engine{detectors: sorted}
}

// DefaultEngine returns an engine with all six detectors.
func DefaultEngine(lim Limits) *Engine {
	return NewEngine(
		DirectCode{},
		DOMStructure{},
		AttributePayload{},
		ExternalReference{},
		NewEncodedContent(lim),
		Obfuscation{},
	)
}

// Detectors returns the engine's detectors in priority order.
func (e *Engine) Detectors() []Detector {
	return slices.Clone(e.detectors)
}

// Run executes every detector concurrently. The returned findings are
// grouped by detector priority, each group in the detector's own discovery
// order, so output is identical across runs.
func (e *Engine) Run(in Input) []threat.Finding {
	results := make([][]threat.Finding, len(e.detectors))

	var wg sync.WaitGroup
	for i, d := range e.detectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Detect(in)
		}()
	}
	wg.Wait()

	var all []threat.Finding
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// Quick is the upload-time check: only the direct-code patterns, no parse.
func Quick(raw []byte) []threat.Finding {
	return DirectCode{}.Detect(Input{Raw: string(raw)})
}
