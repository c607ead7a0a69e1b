package simulate

import "time"

// Lap time model, in milliseconds.
const (
	baseLapMin   = 80_000
	baseLapRange = 20_000
	lapNoise     = 3_000
	cutBonus     = 5_000
)

// Share of laps, in percent, that break a rule.
const (
	cutPercent      = 10
	wrongCarPercent = 5
)

// Defaults applied by Run.
const (
	defaultTimeout      = 10 * time.Second
	defaultWait         = 2 * time.Minute
	defaultPollInterval = 2 * time.Second
	filePermission      = 0o644
	wrongCar            = "simulated_wrong_car"
	defaultCar          = "simulated_car"
)
