package publish

import "errors"

// ErrInFlight means the source changed during the settle window. The
// publish is abandoned and retried on the next poll.
var ErrInFlight = errors.New("artifact changed while settling")

// ErrUnknownAuthor means the channel could not say which author id our own
// messages carry, so existing messages cannot be reclaimed.
var ErrUnknownAuthor = errors.New("own author id unknown")
