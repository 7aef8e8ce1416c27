package governor

import "fmt"

// ValidationError reports a construction-time configuration bound violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("governor config: %s %s", e.Field, e.Reason)
}

func errValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
