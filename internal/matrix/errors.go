package matrix

import "errors"

// validationError marks a malformed or self-contradictory rule table.
// It is fatal at startup, never deferred to resolution time.
type validationError struct {
	reason string
	err    error
}

func (e validationError) Error() string {
	if e.err != nil {
		return "matrix: " + e.reason + ": " + e.err.Error()
	}
	return "matrix: " + e.reason
}

func (e validationError) Unwrap() error { return e.err }

// ErrValidation constructs a fatal matrix validation error.
func ErrValidation(reason string, err error) error { return validationError{reason: reason, err: err} }

// IsValidationError reports whether err is a matrix validation failure.
func IsValidationError(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}
