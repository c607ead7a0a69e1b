// Package registry maps raw in-game driver names to display names.
//
// The mapping is display-only. Identity for scoring is always the driver
// GUID; a registry miss or a fuzzy false positive changes what is printed,
// never who gets the points.
package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/timeattack/internal/domain/model"
)

// entryLine matches "raw - display" with a hyphen, en dash or em dash separator.
var entryLine = regexp.MustCompile(`^(.+?)\s*[-\x{2013}\x{2014}]\s*(.+)$`)

// Registry is an immutable snapshot of raw name to display name.
type Registry struct {
	names map[string]string
	keys  []string // sorted raw names
	norms map[string]string
}

// New builds a registry from a raw name to display name mapping.
func New(names map[string]string) *Registry {
	r := &Registry{
		names: make(map[string]string, len(names)),
		norms: make(map[string]string, len(names)),
	}
	for raw, display := range names {
		raw, display = strings.TrimSpace(raw), strings.TrimSpace(display)
		if raw == "" || display == "" {
			continue
		}
		r.names[raw] = display
		r.norms[raw] = normalize(raw)
		r.keys = append(r.keys, raw)
	}
	sort.Strings(r.keys)
	return r
}

// Decode parses the registry JSON object. Malformed input is a DataError.
func Decode(data []byte) (*Registry, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return New(nil), nil
	}
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, model.NewError("registry.decode", model.ErrData, err)
	}
	return New(names), nil
}

// Encode renders the registry as an indented JSON object with sorted keys.
func (r *Registry) Encode() ([]byte, error) {
	out, err := json.MarshalIndent(r.names, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("registry encode: %w", err)
	}
	return out, nil
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.keys) }

// Names returns a copy of the mapping.
func (r *Registry) Names() map[string]string {
	out := make(map[string]string, len(r.names))
	for k, v := range r.names {
		out[k] = v
	}
	return out
}

// Lookup finds the display name for raw. An exact normalized match wins;
// otherwise the first key, in sorted order, that contains raw or is
// contained by it.
func (r *Registry) Lookup(raw string) (string, bool) {
	if r == nil {
		return "", false
	}
	needle := normalize(raw)
	if needle == "" {
		return "", false
	}
	for _, k := range r.keys {
		if r.norms[k] == needle {
			return r.names[k], true
		}
	}
	for _, k := range r.keys {
		hay := r.norms[k]
		if hay == "" {
			continue
		}
		if strings.Contains(needle, hay) || strings.Contains(hay, needle) {
			return r.names[k], true
		}
	}
	return "", false
}

// Display returns the registered name for raw, or raw itself.
func (r *Registry) Display(raw string) string {
	if name, ok := r.Lookup(raw); ok {
		return name
	}
	return raw
}

// Merge returns a new registry with entries added or replaced.
func (r *Registry) Merge(entries map[string]string) *Registry {
	all := r.Names()
	for k, v := range entries {
		all[k] = v
	}
	return New(all)
}

// ParseLine reads a "raw - display" line. ok is false for anything else.
func ParseLine(line string) (raw, display string, ok bool) {
	m := entryLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	raw, display = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if raw == "" || display == "" {
		return "", "", false
	}
	return raw, display, true
}

// ParseLines collects entries from messages given oldest first, so a later
// line for the same raw name wins. Multi-line messages are read line by line.
func ParseLines(messages []string) map[string]string {
	out := make(map[string]string)
	for _, msg := range messages {
		for _, line := range strings.Split(msg, "\n") {
			if raw, display, ok := ParseLine(line); ok {
				out[raw] = display
			}
		}
	}
	return out
}

func normalize(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
