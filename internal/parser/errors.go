package parser

import "errors"

// ValidationError marks a request problem the caller can fix: empty
// content, missing file name, unsupported extension. The server maps it
// to an invalid-argument response instead of an internal error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err is a request-validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
