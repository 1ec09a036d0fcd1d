package sanitizer

import (
	"strings"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
)

// dangerousElements are removed under every policy, matched on the
// lower-cased local name.
var dangerousElements = map[string]struct{}{
	"script": {}, "iframe": {}, "object": {}, "embed": {},
	"link": {}, "meta": {}, "style": {},
}

// DangerousElements drops high-risk elements and their subtrees before any
// policy filtering.
type DangerousElements struct{}

func (DangerousElements) Name() string { return "dangerous_elements" }

func (s DangerousElements) Apply(root *svgdoc.Element, _ *policy.Policy) []Removal {
	dropped := root.Prune(func(e *svgdoc.Element) bool {
		_, bad := dangerousElements[strings.ToLower(e.LocalName())]
		return bad
	})
	return elementRemovals(s.Name(), dropped, "dangerous element")
}

// ElementAllowList drops every element the policy does not name.
type ElementAllowList struct{}

func (ElementAllowList) Name() string { return "element_allow_list" }

func (s ElementAllowList) Apply(root *svgdoc.Element, p *policy.Policy) []Removal {
	dropped := root.Prune(func(e *svgdoc.Element) bool {
		return !p.AllowsElement(e.Name)
	})
	return elementRemovals(s.Name(), dropped, "not in policy "+p.Name())
}

// AttributeFilter drops attributes the policy does not name, event handler
// attributes, and attributes whose value carries an executable scheme. The
// value is discarded, never escaped.
type AttributeFilter struct{}

func (AttributeFilter) Name() string { return "attribute_filter" }

func (s AttributeFilter) Apply(root *svgdoc.Element, p *policy.Policy) []Removal {
	var removed []Removal
	root.Walk(func(e *svgdoc.Element) bool {
		for _, name := range e.Attrs.Names() {
			value, _ := e.Attrs.Get(name)
			reason := attributeVerdict(name, value, p)
			if reason == "" {
				continue
			}
			e.Attrs.Remove(name)
			removed = append(removed, Removal{
				Step:      s.Name(),
				Kind:      KindAttribute,
				Element:   e.Name,
				Attribute: name,
				Reason:    reason,
			})
		}
		return true
	})
	return removed
}

// attributeVerdict returns why an attribute must go, or "" to keep it.
func attributeVerdict(name, value string, p *policy.Policy) string {
	switch {
	case !p.AllowsAttribute(name):
		return "not in policy " + p.Name()
	case isEventAttribute(name):
		return "event handler"
	}
	return DangerousValue(value)
}

func isEventAttribute(name string) bool {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	return len(name) > 2 && strings.EqualFold(name[:2], "on")
}

func elementRemovals(step string, dropped []*svgdoc.Element, reason string) []Removal {
	out := make([]Removal, len(dropped))
	for i, e := range dropped {
		out[i] = Removal{Step: step, Kind: KindElement, Element: e.Name, Reason: reason}
	}
	return out
}
