package pipeline

import (
	"fmt"
	"strings"
	"time"

	"influxcal/internal/config"
	"influxcal/internal/model"
)

// Window is the publication window. An event is published when its start
// is strictly after Start and not after End.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow derives the window for a build running at now. The lower bound
// is now minus backfill_days. The upper bound is the end of horizon_end in
// loc when set, otherwise now plus horizon_days. An invalid horizon_end is
// reported and horizon_days is used instead.
func NewWindow(cfg *config.Config, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	backfill := cfg.BackfillDays
	if backfill <= 0 {
		backfill = config.DefaultBackfillDays
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = config.DefaultHorizonDays
	}

	w := Window{
		Start: now.AddDate(0, 0, -backfill),
		End:   now.AddDate(0, 0, horizon),
	}

	if s := strings.TrimSpace(cfg.HorizonEnd); s != "" {
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return w, fmt.Errorf("horizon_end %q: %w", s, err)
		}
		w.End = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc)
	}
	return w, nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return t.After(w.Start) && !t.After(w.End)
}

// Filter returns the events whose start is inside the window, in order,
// and the number removed.
func (w Window) Filter(events []model.Event) ([]model.Event, int) {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev.Start) {
			out = append(out, ev)
		}
	}
	return out, len(events) - len(out)
}
