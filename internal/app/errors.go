package service

import "errors"

// Sentinel errors for the service.
var (
	ErrMissingComponent  = errors.New("missing component")
	ErrNoActiveEvent     = errors.New("no active event")
	ErrSeasonMismatch    = errors.New("season does not match the schedule")
	ErrNoRegistryChannel = errors.New("no registry channel configured")
)
