package svgdoc

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := Parse([]byte(s), DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return doc
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "self closing",
			input: `<svg xmlns="http://www.w3.org/2000/svg"><rect width="100" height="100"></rect></svg>`,
			want:  `<svg xmlns="http://www.w3.org/2000/svg"><rect width="100" height="100"/></svg>`,
		},
		{
			name:  "prefixed attribute kept",
			input: `<svg xmlns:xlink="http://www.w3.org/1999/xlink"><use xlink:href="#a"/></svg>`,
			want:  `<svg xmlns:xlink="http://www.w3.org/1999/xlink"><use xlink:href="#a"/></svg>`,
		},
		{
			name:  "declaration doctype and comment dropped",
			input: "<?xml version=\"1.0\"?>\n<!DOCTYPE svg>\n<svg><!-- hi --><g/></svg>",
			want:  `<svg><g/></svg>`,
		},
		{
			name:  "escaping",
			input: `<svg><text title="a &amp; &quot;b&quot;">1 &lt; 2</text></svg>`,
			want:  `<svg><text title="a &amp; &quot;b&quot;">1 &lt; 2</text></svg>`,
		},
		{
			name:  "single quotes normalised",
			input: `<svg id='x'/>`,
			want:  `<svg id="x"/>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(mustParse(t, tt.input).Render())
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
			again := string(mustParse(t, got).Render())
			if again != got {
				t.Errorf("second render = %q, want %q", again, got)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
	}{
		{"mismatched tag", `<svg><rect></svg>`, nil},
		{"not svg", `<html/>`, ErrNotSVG},
		{"duplicate attribute", `<svg id="a" id="b"/>`, ErrDuplicate},
		{"empty", `   `, ErrEmpty},
		{"unclosed", `<svg><g>`, nil},
		{"trailing root", `<svg/><svg/>`, nil},
		{"lt in attribute", `<svg><image href="data:text/html,<script>"/></svg>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), DefaultLimits())
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestParse_Limits(t *testing.T) {
	_, err := Parse([]byte(`<svg/>`), Limits{MaxBytes: 3})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("size limit error = %v, want ErrTooLarge", err)
	}

	deep := strings.Repeat("<g>", 10) + strings.Repeat("</g>", 10)
	_, err = Parse([]byte("<svg>"+deep+"</svg>"), Limits{MaxDepth: 5})
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("depth limit error = %v, want ErrTooDeep", err)
	}
}

func TestAttributes_OrderAndUniqueness(t *testing.T) {
	var a Attributes
	a.Set("b", "1")
	a.Set("a", "2")
	a.Set("b", "3")

	if a.Len() != 2 {
		t.Fatalf("len = %d, want 2", a.Len())
	}
	if got := strings.Join(a.Names(), ","); got != "b,a" {
		t.Errorf("names = %q, want %q", got, "b,a")
	}
	if v, _ := a.Get("b"); v != "3" {
		t.Errorf("b = %q, want %q", v, "3")
	}
	if !a.Remove("b") || a.Remove("b") {
		t.Error("Remove should succeed once")
	}
	if v, ok := a.Get("a"); !ok || v != "2" {
		t.Errorf("a = %q, %v after removal", v, ok)
	}
}

func TestElement_RemoveAndAppend(t *testing.T) {
	doc := mustParse(t, `<svg><g id="one"><rect/></g><g id="two"/></svg>`)
	groups := doc.Root.Elements()
	one, two := groups[0], groups[1]

	rect := one.Elements()[0]
	two.Append(rect)
	if len(one.Children) != 0 {
		t.Errorf("old parent children = %d, want 0", len(one.Children))
	}
	if rect.Parent() != two {
		t.Error("rect should be reparented")
	}

	two.Remove()
	if got := string(doc.Render()); got != `<svg><g id="one"/></svg>` {
		t.Errorf("Render() = %q", got)
	}
	if two.Parent() != nil {
		t.Error("removed element still has a parent")
	}
}

func TestElement_Prune(t *testing.T) {
	doc := mustParse(t, `<svg><g><script/><rect/></g><script><g/></script></svg>`)
	removed := doc.Root.Prune(func(e *Element) bool { return e.LocalName() == "script" })
	if len(removed) != 2 {
		t.Errorf("removed = %d, want 2", len(removed))
	}
	if got := string(doc.Render()); got != `<svg><g><rect/></g></svg>` {
		t.Errorf("Render() = %q", got)
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		input string
		w, h  float64
		ok    bool
	}{
		{`<svg width="10px" height="20"/>`, 10, 20, true},
		{`<svg viewBox="0 0 30,40"/>`, 30, 40, true},
		{`<svg width="100%" height="1" viewBox="0 0 5 6"/>`, 5, 6, true},
		{`<svg/>`, 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := mustParse(t, tt.input).Dimensions()
		if w != tt.w || h != tt.h || ok != tt.ok {
			t.Errorf("Dimensions(%s) = %v, %v, %v, want %v, %v, %v", tt.input, w, h, ok, tt.w, tt.h, tt.ok)
		}
	}
}

func TestTokenize_Malformed(t *testing.T) {
	tags := Tokenize(`<svg><image href="data:text/html,<script>alert(1)</script>"/></svg>`)
	var found bool
	for _, tag := range tags {
		if tag.Name != "image" {
			continue
		}
		for _, a := range tag.Attrs {
			if a.Name == "href" && strings.HasPrefix(a.Value, "data:text/html") {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("Tokenize did not recover image href: %+v", tags)
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"javascript:alert(1)", "javascript:alert(1)"},
		{"  JaVa\tScRipt:x", "javascript:x"},
		{"java\u200bscript:x", "javascript:x"},
		{"ｊａｖａscript:x", "javascript:x"},
		{"#anchor", "#anchor"},
	}
	for _, tt := range tests {
		if got := NormalizeValue(tt.in); got != tt.want {
			t.Errorf("NormalizeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
