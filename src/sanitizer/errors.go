package sanitizer

import (
	"fmt"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
)

// ConfigError is returned for unknown or invalid policies.
type ConfigError = policy.ConfigError

// ParseError means the input is not a well-formed SVG document. Callers
// should reject the file.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("sanitize: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// PolicyViolation means the rewritten document failed verification. The
// output must not be published.
type PolicyViolation struct {
	Policy string
	Reason string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("sanitize: output violates policy %q: %s", e.Policy, e.Reason)
}
