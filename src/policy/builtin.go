package policy

// namespaceAttrs are allowed in every tier so that a clean document keeps
// its namespace declarations.
var namespaceAttrs = []string{"xmlns", "xmlns:xlink"}

var strictDefinition = Definition{
	Name: Strict,
	Elements: []string{
		"svg", "g", "path", "circle", "rect",
		"animate", "animateTransform",
		"title", "desc",
	},
	Attributes: []string{
		"id", "class",
		"fill", "stroke", "stroke-width", "opacity",
		"x", "y", "width", "height", "cx", "cy", "r",
		"d", "transform", "viewBox",
		"attributeName", "begin", "dur", "from", "to",
		"repeatCount", "type",
	},
}

var basicDefinition = Definition{
	Name: Basic,
	Elements: []string{
		"svg", "g", "path", "circle", "ellipse", "line", "rect", "polyline", "polygon",
		"text", "tspan", "textPath",
		"defs", "use", "symbol", "marker",
		"animate", "animateTransform", "set",
		"title", "desc",
	},
	Attributes: []string{
		"id", "class", "style",
		"fill", "stroke", "stroke-width", "opacity",
		"x", "y", "width", "height", "cx", "cy", "r", "rx", "ry",
		"d", "points",
		"transform",
		"viewBox", "preserveAspectRatio",
		"attributeName", "begin", "dur", "from", "to", "values",
		"repeatCount", "type",
		"href", "xlink:href",
	},
}

var advancedDefinition = Definition{
	Name: Advanced,
	Elements: []string{
		"svg", "g", "path", "circle", "ellipse", "line", "rect", "polyline", "polygon",
		"text", "tspan", "textPath", "defs", "use", "symbol", "marker", "title", "desc",
		"animate", "animateTransform", "animateMotion", "set",
		"linearGradient", "radialGradient", "stop", "pattern",
		"clipPath", "mask",
		"filter", "feGaussianBlur", "feOffset", "feColorMatrix",
		"image", "foreignObject", "switch",
	},
	Attributes: []string{
		"id", "class", "style",
		"fill", "stroke", "stroke-width", "stroke-dasharray", "stroke-dashoffset",
		"stroke-linecap", "stroke-linejoin", "fill-opacity", "stroke-opacity",
		"opacity", "fill-rule", "clip-rule",
		"x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry",
		"width", "height", "dx", "dy",
		"d", "points", "pathLength",
		"transform", "transform-origin",
		"viewBox", "preserveAspectRatio",
		"font-family", "font-size", "font-weight", "font-style",
		"text-anchor", "dominant-baseline", "alignment-baseline",
		"gradientUnits", "gradientTransform", "fx", "fy",
		"offset", "stop-color", "stop-opacity",
		"attributeName", "attributeType", "begin", "dur", "end",
		"min", "max", "restart", "repeatCount", "repeatDur",
		"values", "keyTimes", "keySplines",
		"from", "to", "by", "additive", "accumulate", "calcMode",
		"type", "path", "rotate", "origin",
		"animation", "animation-name", "animation-duration",
		"animation-timing-function", "animation-delay",
		"animation-iteration-count", "animation-direction",
		"animation-fill-mode", "animation-play-state",
		"transition", "transition-property", "transition-duration",
		"transition-timing-function", "transition-delay",
		"clip-path", "mask",
		"filter", "stdDeviation", "in", "result",
		"vector-effect", "shape-rendering", "text-rendering",
		"color-rendering", "image-rendering", "visibility", "display",
		"href", "xlink:href",
	},
}

// Builtins returns the definitions of the three built-in tiers.
func Builtins() []Definition {
	defs := []Definition{strictDefinition, basicDefinition, advancedDefinition}
	for i := range defs {
		defs[i] = Merge(defs[i], Definition{Attributes: namespaceAttrs})
	}
	return defs
}
