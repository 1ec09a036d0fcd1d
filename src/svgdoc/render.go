package svgdoc

import (
	"bytes"
	"strings"
)

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#xD;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\t", "&#x9;",
		"\n", "&#xA;",
		"\r", "&#xD;",
	)
)

// Render serializes the document as canonical markup: no XML declaration,
// no DOCTYPE, no comments, double-quoted attributes in their stored order,
// and self-closing tags for elements without children.
func (d *Document) Render() []byte {
	var b bytes.Buffer
	d.Root.render(&b)
	return b.Bytes()
}

// String renders the subtree rooted at e.
func (e *Element) String() string {
	var b bytes.Buffer
	e.render(&b)
	return b.String()
}

func (e *Element) render(b *bytes.Buffer) {
	b.WriteByte('<')
	b.WriteString(e.Name)
	for name, value := range e.Attrs.All() {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		attrEscaper.WriteString(b, value)
		b.WriteByte('"')
	}
	if len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range e.Children {
		switch n := c.(type) {
		case *Element:
			n.render(b)
		case Text:
			textEscaper.WriteString(b, string(n))
		}
	}
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteByte('>')
}
