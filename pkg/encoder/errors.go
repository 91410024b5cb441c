package encoder

import "fmt"

// ValidationError indicates a profile field is absent, mistyped or outside
// its documented domain. Callers should re-prompt for the field.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// SchemaMismatchError indicates the encoder schema and the loaded model
// disagree on the input width.
type SchemaMismatchError struct {
	Expected int
	Actual   int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: encoder produces %d features, model expects %d", e.Actual, e.Expected)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
