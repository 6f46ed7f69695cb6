package extract

import (
	"time"

	"influxcal/internal/config"
	"influxcal/internal/ics"
	appLog "influxcal/internal/log"
	"influxcal/internal/model"
)

// Feed extracts candidates from an iCalendar payload. Recurring events are
// expanded between RangeStart and RangeEnd.
type Feed struct {
	Location   *time.Location
	RangeStart time.Time
	RangeEnd   time.Time
}

// Extract implements Extractor.
func (f *Feed) Extract(src config.Source, payload []byte) ([]model.Candidate, error) {
	events, err := ics.Parse(payload, f.Location)
	if err != nil {
		return nil, &ParseError{URL: src.URL, Err: err}
	}

	res, err := ics.Expand(events, ics.ExpandConfig{
		RangeStart: f.RangeStart,
		RangeEnd:   f.RangeEnd,
	})
	if err != nil {
		return nil, &ParseError{URL: src.URL, Err: err}
	}

	out := make([]model.Candidate, 0, len(res.Occurrences))
	for _, occ := range res.Occurrences {
		if occ.Summary == "" {
			appLog.Debug("feed event without summary skipped", "url", src.URL, "uid", occ.UID)
			continue
		}
		c := model.Candidate{
			Summary:     occ.Summary,
			Location:    occ.Location,
			Description: occ.Description,
		}
		if occ.AllDay {
			c.Start = model.DateOf(occ.Start)
			if !occ.End.IsZero() {
				c.End = model.DateOf(occ.End)
			}
		} else {
			c.Start = model.At(occ.Start)
			if !occ.End.IsZero() {
				c.End = model.At(occ.End)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
