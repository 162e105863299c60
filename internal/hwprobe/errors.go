package hwprobe

// unavailableError signals that no probe backend could run (missing binary,
// driver failure) so the HTTP layer can return 503 instead of 500.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return "hardware probe unavailable: " + e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/failed probe backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
