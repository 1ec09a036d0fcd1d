package svgdoc

import (
	"strconv"
	"strings"
)

// Dimensions returns the intrinsic size of the root element. Explicit
// width and height win; otherwise the viewBox extent is used. ok is false
// when neither yields positive numbers.
func (d *Document) Dimensions() (width, height float64, ok bool) {
	root := d.Root
	w, wok := root.Attrs.Get("width")
	h, hok := root.Attrs.Get("height")
	if wok && hok {
		width, werr := parseLength(w)
		height, herr := parseLength(h)
		if werr == nil && herr == nil && width > 0 && height > 0 {
			return width, height, true
		}
	}

	vb, ok := root.Attrs.Get("viewBox")
	if !ok {
		return 0, 0, false
	}
	parts := strings.FieldsFunc(vb, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(parts) != 4 {
		return 0, 0, false
	}
	width, werr := strconv.ParseFloat(parts[2], 64)
	height, herr := strconv.ParseFloat(parts[3], 64)
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// parseLength accepts a plain number or a number with a px suffix.
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	return strconv.ParseFloat(s, 64)
}
