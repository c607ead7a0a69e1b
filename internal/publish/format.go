package publish

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/okian/timeattack/internal/domain/model"
)

// Namer maps raw driver names to display names.
type Namer interface {
	Display(raw string) string
}

var letterDigit = regexp.MustCompile(`([A-Za-z])([0-9])`)

// FormatEventName renders "season1#event2" as "Season 1 - Event 2".
func FormatEventName(id string) string {
	parts := strings.Split(id, "#")
	for i, part := range parts {
		parts[i] = capitalize(letterDigit.ReplaceAllString(part, "$1 $2"))
	}
	return strings.Join(parts, " - ")
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// CleanName turns content ids like "ks_bmw_m3" into "Bmw M3".
func CleanName(name string) string {
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "ks_", "")
	name = strings.ReplaceAll(name, "_", " ")
	return cases.Title(language.Und).String(name)
}

// EscapeMarkdown escapes the characters the channel treats as formatting.
func EscapeMarkdown(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\*_~|>`+"`", r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func display(names Namer, raw string) string {
	if names != nil {
		raw = names.Display(raw)
	}
	return EscapeMarkdown(raw)
}

// Leaderboard renders the best-lap table of one event.
func Leaderboard(id model.EventID, lb model.Leaderboard, names Namer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**🏁 %s 🏁**\n", FormatEventName(id.String()))
	if len(lb) == 0 {
		b.WriteString("_No laps yet._\n")
		return b.String()
	}
	for i, e := range lb {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, display(names, e.Driver), e.LapTime)
	}
	return b.String()
}

// Standings renders the season table.
func Standings(season string, table []model.StandingsEntry, names Namer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**📊 Season %s Standings 📊**\n\n", strings.TrimPrefix(season, "season"))
	if len(table) == 0 {
		b.WriteString("_No standings yet._\n")
		return b.String()
	}
	for i, e := range table {
		fmt.Fprintf(&b, "%d. %s — %.2f pts\n", i+1, display(names, e.Driver), e.TotalPoints)
	}
	return b.String()
}

// Schedule renders the season calendar. events must be in calendar order.
func Schedule(season string, events []model.Event) string {
	lines := []string{fmt.Sprintf("🏁 **Season %s Schedule** 🏁\n", strings.TrimPrefix(season, "season"))}
	for _, ev := range events {
		lines = append(lines,
			fmt.Sprintf("### 🏁  ==== %s ====", capitalize(letterDigit.ReplaceAllString(ev.ID.Key, "$1 $2"))),
			fmt.Sprintf("**📆 Date:**  %s", ev.Start.Format("Jan 02, 2006")))
		if cfg := CleanName(ev.TrackConfig); cfg != "" {
			lines = append(lines, fmt.Sprintf("**🏎️ Track:**  %s — 🔧 %s", CleanName(ev.Track), cfg))
		} else {
			lines = append(lines, fmt.Sprintf("**🏎️ Track:**  %s", CleanName(ev.Track)))
		}
		cars := make([]string, len(ev.Cars))
		for i, c := range ev.Cars {
			cars[i] = CleanName(c)
		}
		if len(cars) == 0 {
			cars = []string{"Open"}
		}
		lines = append(lines, fmt.Sprintf("**🚗 Cars:** %s\n", strings.Join(cars, ", ")))
	}
	return strings.Join(lines, "\n")
}
