package ics

import (
	"bytes"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"influxcal/internal/model"
)

const productID = "-//DFW Influx Calendars//EN"

// Calendar is one publishable collection.
type Calendar struct {
	Name     string
	Timezone string
	Events   []model.Event
}

// CategoryCalendarName renders the display name of a category feed, e.g.
// "DFW Sports".
func CategoryCalendarName(prefix string, cat model.Category) string {
	title := cases.Title(language.English).String(string(cat))
	if prefix == "" {
		return title
	}
	return prefix + " " + title
}

// Encode serializes cal as an iCalendar stream. stamp is written as DTSTAMP
// on every event so that a given build is byte-for-byte reproducible.
func Encode(cal Calendar, stamp time.Time) ([]byte, error) {
	out := ical.NewCalendar()
	out.SetProductId(productID)
	out.SetVersion("2.0")
	out.SetCalscale("GREGORIAN")
	out.SetMethod(ical.MethodPublish)
	if cal.Name != "" {
		out.SetXWRCalName(cal.Name)
	}
	if cal.Timezone != "" {
		out.SetXWRTimezone(cal.Timezone)
	}

	for _, ev := range cal.Events {
		ve := out.AddEvent(ev.UID)
		ve.SetDtStampTime(stamp)
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		ve.SetSummary(ev.Summary)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}

	var buf bytes.Buffer
	if err := out.SerializeTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize %q: %w", cal.Name, err)
	}
	return buf.Bytes(), nil
}
