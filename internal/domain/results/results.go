// Package results decodes race-session result files into lap records.
package results

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
)

// Lap is one entry of a result file's Laps array.
type Lap struct {
	DriverName string `json:"DriverName"`
	DriverGUID string `json:"DriverGuid"`
	CarModel   string `json:"CarModel"`
	LapTime    int64  `json:"LapTime"`
	Cuts       int    `json:"Cuts"`
	Timestamp  int64  `json:"Timestamp"`
}

// File is a race-session result file.
type File struct {
	TrackName   string `json:"TrackName"`
	TrackConfig string `json:"TrackConfig"`
	Laps        []Lap  `json:"Laps"`
}

// Decode parses a result file. Malformed JSON is a DataError.
func Decode(data []byte) (File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, model.NewError("results.decode", model.ErrData, err)
	}
	return f, nil
}

// Stats counts laps skipped while converting a file.
type Stats struct {
	Blank int // neither guid nor name
}

// Records converts the file's laps into records for event. Track fields
// come from the file and fall back to the event's. Laps with neither a
// GUID nor a name are skipped; every other filter belongs to the
// leaderboard aggregator.
func (f File) Records(event model.Event, uploadedAt time.Time) ([]model.LapRecord, Stats) {
	track := strings.TrimSpace(f.TrackName)
	if track == "" {
		track = event.Track
	}
	config := strings.TrimSpace(f.TrackConfig)
	if config == "" {
		config = event.TrackConfig
	}

	var stats Stats
	out := make([]model.LapRecord, 0, len(f.Laps))
	for _, l := range f.Laps {
		guid, name := strings.TrimSpace(l.DriverGUID), strings.TrimSpace(l.DriverName)
		if guid == "" && name == "" {
			stats.Blank++
			continue
		}
		out = append(out, model.LapRecord{
			EventID:     event.ID,
			LapKey:      LapKey(guid, name, l.Timestamp),
			DriverGUID:  guid,
			DriverName:  name,
			CarModel:    strings.TrimSpace(l.CarModel),
			TrackName:   track,
			TrackConfig: config,
			LapTimeMS:   l.LapTime,
			Cuts:        l.Cuts,
			UploadedAt:  uploadedAt,
		})
	}
	return out, stats
}

// LapKey identifies a lap within an event: "<guid>#<timestamp>", or the
// driver name in place of a missing guid.
func LapKey(guid, name string, timestamp int64) string {
	who := guid
	if who == "" {
		who = "name:" + name
	}
	return who + "#" + strconv.FormatInt(timestamp, 10)
}

// String summarises the file for logs.
func (f File) String() string {
	return fmt.Sprintf("%s/%s (%d laps)", f.TrackName, f.TrackConfig, len(f.Laps))
}
