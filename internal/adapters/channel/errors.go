package channel

import "errors"

var (
	// ErrNotFound means the referenced message no longer exists.
	ErrNotFound = errors.New("message not found")
	// ErrTooLong means the content exceeds MaxContentLength.
	ErrTooLong = errors.New("message content too long")
	// ErrUnauthorized means the channel rejected the credentials.
	ErrUnauthorized = errors.New("channel credentials rejected")
)
