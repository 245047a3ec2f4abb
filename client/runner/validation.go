package runner

import (
	"fmt"

	generator "csb/data-generator"
)

// ValidationMode controls what reads do with the values they observe
type ValidationMode int

const (
	// ValidationNone skips all checks
	ValidationNone ValidationMode = iota
	// ValidationUpdate writes a missing value back from the value generator
	ValidationUpdate
	// ValidationStrict fails on a missing value
	ValidationStrict
)

func (m ValidationMode) String() string {
	switch m {
	case ValidationUpdate:
		return "update"
	case ValidationStrict:
		return "strict"
	default:
		return "none"
	}
}

// ParseValidationMode maps "none", "update" and "strict" to a mode
func ParseValidationMode(s string) (ValidationMode, error) {
	switch s {
	case "", "none":
		return ValidationNone, nil
	case "update":
		return ValidationUpdate, nil
	case "strict":
		return ValidationStrict, nil
	}
	return ValidationNone, fmt.Errorf("%w: unknown validation mode %q", ErrConfiguration, s)
}

// Validator checks an observed value against the value expected for its seed
type Validator interface {
	Validate(seed int64, observed []byte) error
}

// ValidationError reports an observed value that does not match the expected one.
// Index is the first mismatching element, or -1 when the mismatch is not elementwise.
type ValidationError struct {
	Seed   int64
	Key    string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("validation failed for key %q (seed %d) at element %d: %s", e.Key, e.Seed, e.Index, e.Reason)
	}
	return fmt.Sprintf("validation failed for key %q (seed %d): %s", e.Key, e.Seed, e.Reason)
}

// GeneratorValidator regenerates the expected value from the seed and compares
type GeneratorValidator struct {
	Generator generator.ObjectGenerator
}

func (v GeneratorValidator) Validate(seed int64, observed []byte) error {
	expected := v.Generator.Generate(seed)
	if len(expected) != len(observed) {
		return &ValidationError{
			Seed:   seed,
			Index:  -1,
			Reason: fmt.Sprintf("expected %d bytes, observed %d", len(expected), len(observed)),
		}
	}
	for i := range expected {
		if expected[i] != observed[i] {
			return &ValidationError{
				Seed:   seed,
				Index:  i,
				Reason: fmt.Sprintf("expected %#02x, observed %#02x", expected[i], observed[i]),
			}
		}
	}
	return nil
}
