package detect

import (
	"fmt"
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// DangerousElements maps element local names, lower-cased, to the severity
// of their presence. The order of DangerousElementNames fixes finding order.
var DangerousElements = map[string]threat.Severity{
	"script": threat.SeverityCritical,
	"iframe": threat.SeverityCritical,
	"object": threat.SeverityHigh,
	"embed":  threat.SeverityHigh,
	"link":   threat.SeverityMedium,
	"meta":   threat.SeverityMedium,
	"style":  threat.SeverityMedium,
}

var DangerousElementNames = []string{"script", "iframe", "object", "embed", "link", "meta", "style"}

// DOMStructure inspects the parsed tree. Content that did not parse is
// itself reported as malformed.
type DOMStructure struct{}

func (DOMStructure) Name() string  { return "dom_structure" }
func (DOMStructure) Priority() int { return 20 }

func (DOMStructure) Detect(in Input) []threat.Finding {
	if in.Doc == nil {
		reason := "unknown parse failure"
		if in.ParseErr != nil {
			reason = in.ParseErr.Error()
		}
		return []threat.Finding{threat.NewFinding(threat.TypeMalformedXML, threat.SeverityMedium,
			"SVG contains malformed XML that could be used to bypass parsers",
			"XML parsing error: "+reason)}
	}

	counts := make(map[string]int)
	nested, foreign := 0, 0
	for _, el := range in.Doc.Elements() {
		local := strings.ToLower(el.LocalName())
		if _, ok := DangerousElements[local]; ok {
			counts[local]++
		}
		if local == "svg" && el != in.Doc.Root {
			nested++
		}
		if local == "foreignobject" {
			foreign++
		}
	}

	var out []threat.Finding
	for _, name := range DangerousElementNames {
		n := counts[name]
		if n == 0 {
			continue
		}
		out = append(out, threat.NewFinding(threat.TypeDangerousElement, DangerousElements[name],
			fmt.Sprintf("Contains %d dangerous <%s> element(s)", n, name),
			fmt.Sprintf("<%s> x%d", name, n)))
	}
	if nested > 0 {
		out = append(out, threat.NewFinding(threat.TypeNestedSVG, threat.SeverityMedium,
			"Contains nested SVG elements which could be used for obfuscation",
			fmt.Sprintf("nested <svg> x%d", nested)))
	}
	if foreign > 0 {
		out = append(out, threat.NewFinding(threat.TypeForeignObject, threat.SeverityHigh,
			"Contains foreignObject elements which can embed arbitrary content",
			fmt.Sprintf("<foreignObject> x%d", foreign)))
	}
	return out
}

// attrRef is an attribute together with the element that carries it.
type attrRef struct {
	element string
	name    string
	value   string
}

// attributes lists every attribute in the input. When the document did not
// parse, a lenient tokenizer recovers what it can so payloads hidden in
// malformed markup are still inspected.
func attributes(in Input) []attrRef {
	var out []attrRef
	if in.Doc != nil {
		for _, el := range in.Doc.Elements() {
			for name, value := range el.Attrs.All() {
				out = append(out, attrRef{element: el.Name, name: name, value: value})
			}
		}
		return out
	}
	for _, tag := range svgdoc.Tokenize(in.Raw) {
		for _, a := range tag.Attrs {
			out = append(out, attrRef{element: tag.Name, name: a.Name, value: a.Value})
		}
	}
	return out
}
