// Package svgdoc parses SVG markup into a mutable element tree and renders
// it back to canonical markup.
package svgdoc

import "strings"

// Node is a child of an Element: either *Element or Text.
type Node interface {
	isNode()
}

// Text is character data. It holds the unescaped value.
type Text string

func (Text) isNode() {}

// Element is a single XML element. Name is the qualified name as written.
type Element struct {
	Name     string
	Attrs    Attributes
	Children []Node

	parent *Element
}

func (*Element) isNode() {}

// NewElement returns a detached element.
func NewElement(name string) *Element {
	return &Element{Name: name}
}

// LocalName returns the name without any namespace prefix.
func (e *Element) LocalName() string {
	if i := strings.IndexByte(e.Name, ':'); i >= 0 {
		return e.Name[i+1:]
	}
	return e.Name
}

// Parent returns the containing element, or nil for a root or detached element.
func (e *Element) Parent() *Element { return e.parent }

// Append adds child to the end of e's children. An element that already has
// a parent is detached from it first, so a node never has two parents.
func (e *Element) Append(child Node) {
	if el, ok := child.(*Element); ok {
		el.Remove()
		el.parent = e
	}
	e.Children = append(e.Children, child)
}

// Remove detaches e and its subtree from its parent. It is a no-op on a
// detached element.
func (e *Element) Remove() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == Node(e) {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// Elements returns the direct element children.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Walk visits e and its descendants in document order. Returning false from
// fn skips the element's subtree.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Elements() {
		c.Walk(fn)
	}
}

// Prune removes every descendant of e for which drop returns true, without
// descending into removed subtrees. It returns the removed elements in
// document order. e itself is never removed.
func (e *Element) Prune(drop func(*Element) bool) []*Element {
	var removed []*Element
	kept := e.Children[:0]
	for _, c := range e.Children {
		el, ok := c.(*Element)
		if !ok {
			kept = append(kept, c)
			continue
		}
		if drop(el) {
			el.parent = nil
			removed = append(removed, el)
			continue
		}
		kept = append(kept, el)
		removed = append(removed, el.Prune(drop)...)
	}
	clear(e.Children[len(kept):])
	e.Children = kept
	return removed
}

// Document is a parsed SVG document.
type Document struct {
	Root *Element

	// Skipped lists prolog constructs that were read but are never
	// rendered: the XML declaration, DOCTYPE and processing instructions.
	Skipped []string
}

// Elements returns every element in document order, root first.
func (d *Document) Elements() []*Element {
	var out []*Element
	d.Root.Walk(func(e *Element) bool {
		out = append(out, e)
		return true
	})
	return out
}
