package pipeline

import "influxcal/internal/model"

type dedupKey struct {
	summary  string
	start    int64
	location string
}

// Dedup removes events whose summary, start instant and location exactly
// match an earlier event. The first occurrence wins and order is kept.
// Near-duplicates are never merged.
func Dedup(events []model.Event) []model.Event {
	seen := make(map[dedupKey]struct{}, len(events))
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		k := dedupKey{summary: ev.Summary, start: ev.Start.UnixNano(), location: ev.Location}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ev)
	}
	return out
}
