package models

import "errors"

// ErrInvalidInput is returned for requests the caller must fix before retrying:
// empty text, non-positive limit, malformed filter.
var ErrInvalidInput = errors.New("invalid input")
