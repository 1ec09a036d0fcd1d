package svgdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultMaxBytes = 5 << 20
	DefaultMaxDepth = 256
)

var (
	ErrNotSVG    = errors.New("root element is not svg")
	ErrTooLarge  = errors.New("document exceeds size limit")
	ErrTooDeep   = errors.New("document exceeds nesting limit")
	ErrEmpty     = errors.New("document has no root element")
	ErrDuplicate = errors.New("duplicate attribute")
)

// Limits bounds the work Parse will do on a single document.
type Limits struct {
	MaxBytes int
	MaxDepth int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, MaxDepth: DefaultMaxDepth}
}

// ParseError reports input that is not a well-formed SVG document.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("svg parse error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("svg parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads data as strict XML and builds the element tree. The root
// element must be svg. Comments are dropped; the XML declaration, DOCTYPE
// and processing instructions are recorded in Document.Skipped.
func Parse(data []byte, lim Limits) (*Document, error) {
	if lim.MaxBytes > 0 && len(data) > lim.MaxBytes {
		return nil, &ParseError{Err: fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), lim.MaxBytes)}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	fail := func(err error) (*Document, error) {
		line, _ := dec.InputPos()
		return nil, &ParseError{Line: line, Err: err}
	}

	doc := &Document{}
	var stack []*Element

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && doc.Root != nil {
				return fail(errors.New("multiple root elements"))
			}
			if lim.MaxDepth > 0 && len(stack) >= lim.MaxDepth {
				return fail(fmt.Errorf("%w: depth %d", ErrTooDeep, lim.MaxDepth))
			}
			el := NewElement(qualified(t.Name))
			for _, a := range t.Attr {
				name := qualified(a.Name)
				if !el.Attrs.add(name, a.Value) {
					return fail(fmt.Errorf("%w %q on <%s>", ErrDuplicate, name, el.Name))
				}
			}
			if len(stack) == 0 {
				if el.LocalName() != "svg" {
					return fail(fmt.Errorf("%w: <%s>", ErrNotSVG, el.Name))
				}
				doc.Root = el
			} else {
				stack[len(stack)-1].Append(el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 {
				return fail(fmt.Errorf("unexpected end element </%s>", name))
			}
			top := stack[len(stack)-1]
			if top.Name != name {
				return fail(fmt.Errorf("element <%s> closed by </%s>", top.Name, name))
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return fail(errors.New("character data outside root element"))
				}
				continue
			}
			stack[len(stack)-1].Children = append(stack[len(stack)-1].Children, Text(t))

		case xml.ProcInst:
			doc.Skipped = append(doc.Skipped, "<?"+t.Target+"?>")

		case xml.Directive:
			doc.Skipped = append(doc.Skipped, "<!"+firstWord(string(t))+">")

		case xml.Comment:
			// dropped
		}
	}

	if len(stack) > 0 {
		return fail(fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name))
	}
	if doc.Root == nil {
		return fail(ErrEmpty)
	}
	return doc, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\r\n["); i >= 0 {
		return s[:i]
	}
	return s
}
