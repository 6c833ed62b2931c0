package common

import "errors"

// Error kinds shared across the module. Boundaries wrap their failures with
// one of these so callers can classify them with errors.Is.
var (
	ErrInputIO    = errors.New("input i/o failure")
	ErrOutputIO   = errors.New("output i/o failure")
	ErrStoreParse = errors.New("malformed store document")
	ErrOracle     = errors.New("oracle failure")
	ErrInternal   = errors.New("internal failure")
)
