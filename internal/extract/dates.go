package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"influxcal/internal/model"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthPattern = `(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)\.?`

var (
	// "June 13, 2026"
	longDateRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,\s*(\d{4})\b`)

	// "7:30 PM", "7 pm", "7:30p.m."
	clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\b\.?`)

	// "Sat Jun 13, 2026 • 7:00 PM"
	aggregatorShortRe = regexp.MustCompile(`(?i)\b(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*\.?,?\s+` +
		`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})` +
		`.*?\b(\d{1,2}):(\d{2})\s*([AP])\.?M\b`)

	// "Saturday, June 13, 2026 at 7:00 PM"
	aggregatorLongRe = regexp.MustCompile(`(?i)\b(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday),\s+` +
		monthPattern + `\s+(\d{1,2}),\s+(\d{4})\s+at\s+(\d{1,2})(?::(\d{2}))?\s*([AP])\.?M\b`)
)

// clockTime is a default time of day.
type clockTime struct {
	hour, minute int
}

var defaultEventTime = clockTime{hour: 19}

// parseClock parses "HH:MM" (24h).
func parseClock(s string) (clockTime, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return clockTime{}, false
	}
	return clockTime{hour: t.Hour(), minute: t.Minute()}, true
}

// wallDate builds a naive instant and rejects calendar overflow such as
// February 30.
func wallDate(year int, month time.Month, day, hour, minute int) (model.Stamp, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return model.Stamp{}, false
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return model.Stamp{}, false
	}
	return model.Wall(t), true
}

func monthFromName(name string) (time.Month, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if len(name) < 3 {
		return 0, false
	}
	m, ok := months[name[:3]]
	return m, ok
}

// to24h converts a 12-hour clock reading.
func to24h(hour int, meridiem string) (int, bool) {
	if hour < 1 || hour > 12 {
		return 0, false
	}
	pm := strings.EqualFold(meridiem, "p")
	switch {
	case hour == 12 && !pm:
		return 0, true
	case hour == 12 && pm:
		return 12, true
	case pm:
		return hour + 12, true
	default:
		return hour, true
	}
}

// parseLongDate finds "Month D, YYYY" in text. A clock time following the
// date is used when present, otherwise def applies.
func parseLongDate(text string, def clockTime) (model.Stamp, bool) {
	idx := longDateRe.FindStringSubmatchIndex(text)
	if idx == nil {
		return model.Stamp{}, false
	}
	month, ok := monthFromName(text[idx[2]:idx[3]])
	if !ok {
		return model.Stamp{}, false
	}
	day, _ := strconv.Atoi(text[idx[4]:idx[5]])
	year, _ := strconv.Atoi(text[idx[6]:idx[7]])

	hour, minute := def.hour, def.minute
	if c := clockRe.FindStringSubmatch(text[idx[1]:]); c != nil {
		h, _ := strconv.Atoi(c[1])
		mins := 0
		if c[2] != "" {
			mins, _ = strconv.Atoi(c[2])
		}
		if h24, ok := to24h(h, c[3]); ok {
			hour, minute = h24, mins
		}
	}
	return wallDate(year, month, day, hour, minute)
}

// parseCompound applies one of the aggregator patterns. Groups are month,
// day, year, hour, minute, meridiem. A missing minute group means :00.
func parseCompound(re *regexp.Regexp, text string) (model.Stamp, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return model.Stamp{}, false
	}
	month, ok := monthFromName(m[1])
	if !ok {
		return model.Stamp{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return model.Stamp{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return model.Stamp{}, false
	}
	h, err := strconv.Atoi(m[4])
	if err != nil {
		return model.Stamp{}, false
	}
	minute := 0
	if m[5] != "" {
		if minute, err = strconv.Atoi(m[5]); err != nil {
			return model.Stamp{}, false
		}
	}
	hour, ok := to24h(h, m[6])
	if !ok {
		return model.Stamp{}, false
	}
	return wallDate(year, month, day, hour, minute)
}
