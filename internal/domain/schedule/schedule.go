// Package schedule parses the season schedule and resolves the active event.
package schedule

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/okian/timeattack/internal/domain/model"
)

const (
	seasonKey  = "season"
	dateLayout = "2006-01-02"
)

// EventDef is one schedule entry as written in the schedule file.
type EventDef struct {
	StartDate   string   `yaml:"startDate" json:"startDate" validate:"required,datetime=2006-01-02"`
	Track       string   `yaml:"track" json:"track"`
	TrackConfig string   `yaml:"trackConfig" json:"trackConfig,omitempty"`
	Cars        []string `yaml:"cars" json:"cars" validate:"dive,required"`
	Order       *int     `yaml:"order" json:"order,omitempty"`
}

// Schedule is a parsed season schedule. Keys keep declaration order.
type Schedule struct {
	Season  int
	keys    []string
	defs    map[string]EventDef
	invalid map[string]error
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Parse decodes a schedule from YAML or JSON.
func Parse(data []byte) (*Schedule, error) {
	const op = "schedule.parse"
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, model.NewError(op, model.ErrConfig, err)
	}
	if len(s.keys) == 0 && len(s.invalid) == 0 {
		return nil, model.NewError(op, model.ErrConfig, ErrEmptySchedule)
	}
	return &s, nil
}

// UnmarshalYAML reads a flat mapping of season number and event entries.
func (s *Schedule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: schedule must be a mapping", ErrMalformed)
	}
	s.Season = 1
	s.defs = make(map[string]EventDef)
	s.invalid = make(map[string]error)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		if key == seasonKey {
			if err := val.Decode(&s.Season); err != nil {
				return fmt.Errorf("%w: season: %v", ErrMalformed, err)
			}
			continue
		}
		if _, dup := s.defs[key]; dup {
			s.invalid[key] = fmt.Errorf("%w: duplicate event %q", ErrMalformed, key)
			continue
		}
		var def EventDef
		if err := val.Decode(&def); err != nil {
			s.invalid[key] = fmt.Errorf("%w: %v", ErrMalformed, err)
			continue
		}
		if err := getValidator().Struct(def); err != nil {
			s.invalid[key] = fmt.Errorf("%w: %v", ErrInvalidDate, err)
			continue
		}
		s.keys = append(s.keys, key)
		s.defs[key] = def
	}
	return nil
}

// Keys returns valid event keys in declaration order.
func (s *Schedule) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Def returns the raw definition for key.
func (s *Schedule) Def(key string) (EventDef, bool) {
	d, ok := s.defs[key]
	return d, ok
}

// Invalid returns entries that were skipped during parsing, keyed by event key.
func (s *Schedule) Invalid() map[string]error {
	out := make(map[string]error, len(s.invalid))
	for k, v := range s.invalid {
		out[k] = v
	}
	return out
}

// SeasonID returns e.g. "season1".
func (s *Schedule) SeasonID() string { return model.SeasonID(s.Season) }
