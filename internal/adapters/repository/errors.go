package repository

import "errors"

// Sentinel kinds for artifact store errors.
var (
	ErrNotFound  = errors.New("artifact entry not found")
	ErrMalformed = errors.New("malformed artifact")
)
