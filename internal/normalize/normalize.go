// Package normalize turns candidate records into canonical events: every
// start and end becomes an instant in the configured zone, all-day events
// are detected, and missing ends get their default duration exactly once.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"influxcal/internal/model"
)

const (
	// DefaultTimedDuration applies to timed events without an end.
	DefaultTimedDuration = 2 * time.Hour
	// DefaultAllDayDays applies to all-day events without an end.
	DefaultAllDayDays = 1
)

var (
	// ErrUnparseable marks a start or end that matched none of the
	// recognized shapes. The owning candidate is dropped.
	ErrUnparseable = errors.New("unparseable date")
	// ErrMissingStart marks a candidate without a start.
	ErrMissingStart = errors.New("missing start")
	// ErrMissingSummary marks a candidate with a blank summary.
	ErrMissingSummary = errors.New("missing summary")
)

const dateLayout = "2006-01-02"

var awareLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalizer converts candidates into events in one zone.
type Normalizer struct {
	Location  *time.Location
	UIDDomain string
}

// New returns a Normalizer for loc; nil means UTC.
func New(loc *time.Location, uidDomain string) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc, UIDDomain: uidDomain}
}

// Normalize returns the canonical event for c, or an error wrapping
// ErrUnparseable, ErrMissingStart or ErrMissingSummary.
func (n *Normalizer) Normalize(c model.Candidate) (model.Event, error) {
	summary := strings.TrimSpace(c.Summary)
	if summary == "" {
		return model.Event{}, ErrMissingSummary
	}

	start, allDay, err := n.Instant(c.Start, c.AllDay)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}

	end, err := n.end(c.End, start, allDay)
	if err != nil {
		return model.Event{}, fmt.Errorf("end: %w", err)
	}

	location := strings.TrimSpace(c.Location)
	return model.Event{
		UID:         model.EventUID(summary, start, end, location, n.UIDDomain),
		Summary:     summary,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Location:    location,
		Description: strings.TrimSpace(c.Description),
		Category:    c.Category,
	}, nil
}

func (n *Normalizer) end(s model.Stamp, start time.Time, allDay bool) (time.Time, error) {
	if allDay {
		def := start.AddDate(0, 0, DefaultAllDayDays)
		if s.IsZero() {
			return def, nil
		}
		end, _, err := n.Instant(s, true)
		if err != nil {
			return time.Time{}, err
		}
		if !end.After(start) {
			return def, nil
		}
		return end, nil
	}

	def := start.Add(DefaultTimedDuration)
	if s.IsZero() {
		return def, nil
	}
	// A bare end date resolves to local midnight of that date.
	end, _, err := n.Instant(s, false)
	if err != nil {
		return time.Time{}, err
	}
	if end.Before(start) {
		return def, nil
	}
	return end, nil
}

// Instant resolves one stamp into the normalizer's zone. The boolean reports
// all-day semantics: forced by the caller, a date stamp, or a text value of
// exactly 10 characters. All-day results are at local midnight.
func (n *Normalizer) Instant(s model.Stamp, forceAllDay bool) (time.Time, bool, error) {
	loc := n.Location
	var t time.Time
	allDay := forceAllDay

	switch {
	case s.IsZero():
		return time.Time{}, false, ErrMissingStart
	case s.IsAware():
		t = s.Time().In(loc)
	case s.IsWall():
		w := s.Time()
		t = time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc)
	case s.IsDate():
		t = s.Time()
		allDay = true
	case s.IsText():
		parsed, dateOnly, err := parseText(s.Raw(), loc)
		if err != nil {
			return time.Time{}, false, err
		}
		t = parsed
		allDay = allDay || dateOnly
	}

	if allDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true, nil
	}
	return t.Truncate(time.Minute), false, nil
}

func parseText(raw string, loc *time.Location) (time.Time, bool, error) {
	s := strings.TrimSpace(raw)
	if len(s) == len(dateLayout) {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		return t, true, nil
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), false, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrUnparseable, raw)
}
