package plan

// invalidInputError signals structurally invalid planner input for 400 mapping.
type invalidInputError struct {
	field  string
	reason string
}

func (e invalidInputError) Error() string {
	return "invalid input: " + e.field + ": " + e.reason
}

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(field, reason string) error {
	return invalidInputError{field: field, reason: reason}
}

// IsInvalidInput reports whether err indicates structurally invalid input.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
