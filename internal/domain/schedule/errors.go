package schedule

import "errors"

// Sentinel kinds for schedule errors.
var (
	ErrEmptySchedule = errors.New("schedule has no events")
	ErrMalformed     = errors.New("malformed schedule entry")
	ErrInvalidDate   = errors.New("invalid event start date")
	ErrUnknownEvent  = errors.New("event not in schedule")
)
