// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	seasonPrefix = "season"
	idSeparator  = "#"
)

// EventID identifies one scheduled event, e.g. season1#event2.
type EventID struct {
	Season string // e.g. "season1"
	Key    string // e.g. "event2", "preseason"
}

// NewEventID builds an EventID from a numeric season and an event key.
func NewEventID(season int, key string) EventID {
	return EventID{Season: SeasonID(season), Key: key}
}

// SeasonID returns the canonical season identifier for a season number.
func SeasonID(season int) string {
	return seasonPrefix + strconv.Itoa(season)
}

// ParseEventID parses the "<season>#<key>" form.
func ParseEventID(s string) (EventID, error) {
	const op = "model.parse_event_id"
	season, key, ok := strings.Cut(strings.TrimSpace(s), idSeparator)
	if !ok || season == "" || key == "" || strings.Contains(key, idSeparator) {
		return EventID{}, NewError(op, ErrConfig, fmt.Errorf("malformed event id %q", s))
	}
	return EventID{Season: season, Key: key}, nil
}

func (id EventID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Season + idSeparator + id.Key
}

// IsZero reports whether the id is unset.
func (id EventID) IsZero() bool { return id.Season == "" && id.Key == "" }

// SeasonNumber extracts N from "seasonN".
func (id EventID) SeasonNumber() (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id.Season, seasonPrefix))
	if err != nil || !strings.HasPrefix(id.Season, seasonPrefix) {
		return 0, errors.Join(ErrConfig, fmt.Errorf("season %q has no number", id.Season))
	}
	return n, nil
}

// MarshalText implements encoding.TextMarshaler so ids can key JSON objects.
func (id EventID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Event is one scheduled session with a fixed track and car ruleset.
type Event struct {
	ID          EventID
	Start       time.Time
	Track       string
	TrackConfig string
	Cars        []string
	Order       int  // declared ordering key, 0 when absent
	HasOrder    bool // Order was set explicitly
	Points      bool // counts towards season standings
}

// AllowsCar reports whether car is legal for the event. An empty list allows any car.
func (e Event) AllowsCar(car string) bool {
	if len(e.Cars) == 0 {
		return true
	}
	for _, c := range e.Cars {
		if c == car {
			return true
		}
	}
	return false
}

// MatchesTrack compares track names case-insensitively.
func (e Event) MatchesTrack(track string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Track), strings.TrimSpace(track))
}

// LapRecord is one raw lap as stored by ingestion. Records are never mutated.
type LapRecord struct {
	EventID     EventID
	LapKey      string // "<guid>#<lap timestamp>", unique per event
	DriverGUID  string
	DriverName  string
	CarModel    string
	TrackName   string
	TrackConfig string
	LapTimeMS   int64
	Cuts        int
	UploadedAt  time.Time
	UploadSeq   int64 // monotonic store order
}

// Identity returns the stable driver key for the record.
func (l LapRecord) Identity() string { return l.DriverGUID }
