package sanitizer

// Verdict represents the outcome of a sanitization.
type Verdict int

const (
	// VerdictPass means nothing was removed. Content is still the
	// canonical rendering and may differ from the input in formatting.
	VerdictPass Verdict = iota
	// VerdictModify means the content was sanitized and should be used
	// in place of the original.
	VerdictModify
	// VerdictBlock means no safe output could be produced.
	VerdictBlock
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictModify:
		return "modify"
	case VerdictBlock:
		return "block"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Removal kinds.
const (
	KindElement   = "element"
	KindAttribute = "attribute"
	KindProlog    = "prolog"
)

// Removal records one thing a Step discarded.
type Removal struct {
	Step      string `json:"step"`
	Kind      string `json:"kind"`
	Element   string `json:"element"`
	Attribute string `json:"attribute,omitempty"`
	Reason    string `json:"reason"`
}

// Result is the outcome of Sanitize. Content is nil unless Verdict is
// pass or modify.
type Result struct {
	Verdict Verdict   `json:"verdict"`
	Policy  string    `json:"policy"`
	Content []byte    `json:"-"`
	Removed []Removal `json:"removed,omitempty"`

	// Width and Height are the intrinsic size of the cleaned document,
	// zero when neither width/height nor viewBox give one.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}
