package simulate

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/timeattack/internal/domain/results"
)

// Driver is a simulated participant.
type Driver struct {
	GUID   string
	Name   string
	baseMS int64
}

// Generate builds cfg.Files result files for cfg.Event. Every driver takes
// part in every file. Some laps are cut or driven in an illegal car so the
// aggregator's filters are exercised. Equal seeds give equal output.
func Generate(cfg *Config) ([]results.File, []Driver) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // simulation data

	drivers := make([]Driver, cfg.Drivers)
	for i := range drivers {
		id, _ := uuid.NewRandomFromReader(rngReader{rng})
		drivers[i] = Driver{
			GUID:   "sim-" + id.String(),
			Name:   fmt.Sprintf("Sim Driver %03d", i+1),
			baseMS: baseLapMin + rng.Int64N(baseLapRange),
		}
	}

	cars := cfg.Event.Cars
	if len(cars) == 0 {
		cars = []string{defaultCar}
	}

	// Timestamps must be unique per driver within the event.
	ts := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	files := make([]results.File, cfg.Files)
	for f := range files {
		file := results.File{TrackName: cfg.Event.Track, TrackConfig: cfg.Event.TrackConfig}
		for _, d := range drivers {
			for l := 0; l < cfg.LapsPerDriver; l++ {
				ts++
				lap := results.Lap{
					DriverName: d.Name,
					DriverGUID: d.GUID,
					CarModel:   cars[rng.IntN(len(cars))],
					LapTime:    d.baseMS + rng.Int64N(lapNoise),
					Timestamp:  ts,
				}
				switch roll := rng.IntN(100); {
				case roll < cutPercent:
					lap.Cuts = 1 + rng.IntN(3)
					lap.LapTime -= cutBonus
				case roll < cutPercent+wrongCarPercent && len(cfg.Event.Cars) > 0:
					lap.CarModel = wrongCar
				}
				file.Laps = append(file.Laps, lap)
			}
		}
		files[f] = file
	}
	return files, drivers
}

// rngReader feeds uuid generation from the seeded source.
type rngReader struct{ rng *rand.Rand }

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.UintN(256))
	}
	return len(p), nil
}
