package svgdoc

import (
	"strings"

	"golang.org/x/net/html"
)

// Tag is a start tag recovered by the lenient tokenizer.
type Tag struct {
	Name  string
	Attrs []Attr
}

// Tokenize extracts start tags from markup that may not be well-formed XML.
// Names are lower-cased and attribute values are entity-decoded. Attributes
// repeated on a tag keep their first value.
func Tokenize(raw string) []Tag {
	z := html.NewTokenizer(strings.NewReader(raw))
	var tags []Tag
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			tag := Tag{Name: tok.Data}
			seen := make(map[string]struct{}, len(tok.Attr))
			for _, a := range tok.Attr {
				name := a.Key
				if a.Namespace != "" {
					name = a.Namespace + ":" + a.Key
				}
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				tag.Attrs = append(tag.Attrs, Attr{Name: name, Value: a.Val})
			}
			tags = append(tags, tag)
		}
	}
}
