package normalize

import (
	"errors"
	"testing"
	"time"

	"influxcal/internal/model"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func TestBareDateIsAllDay(t *testing.T) {
	loc := chicago(t)
	n := New(loc, "dfw-influx")

	ev, err := n.Normalize(model.Candidate{Summary: "Art Walk", Start: model.Text("2026-06-05")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !ev.AllDay {
		t.Fatal("expected all-day event")
	}
	wantStart := time.Date(2026, 6, 5, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 6, 6, 0, 0, 0, 0, loc)
	if !ev.Start.Equal(wantStart) || ev.Start.Location() != loc {
		t.Fatalf("start = %s, want %s", ev.Start, wantStart)
	}
	if !ev.End.Equal(wantEnd) {
		t.Fatalf("end = %s, want %s", ev.End, wantEnd)
	}
}

func TestMalformedDateIsUnparseable(t *testing.T) {
	n := New(chicago(t), "")
	_, err := n.Normalize(model.Candidate{Summary: "Broken", Start: model.Text("not-a-date")})
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable, got %v", err)
	}

	_, err = n.Normalize(model.Candidate{Summary: "Ten chars!", Start: model.Text("2026-13-45")})
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable for invalid 10-char date, got %v", err)
	}

	_, err = n.Normalize(model.Candidate{
		Summary: "Bad end",
		Start:   model.Text("2026-06-05T19:00"),
		End:     model.Text("soon"),
	})
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("expected ErrUnparseable for bad end, got %v", err)
	}
}

func TestMissingStartAndSummary(t *testing.T) {
	n := New(chicago(t), "")
	if _, err := n.Normalize(model.Candidate{Summary: "x"}); !errors.Is(err, ErrMissingStart) {
		t.Fatalf("expected ErrMissingStart, got %v", err)
	}
	if _, err := n.Normalize(model.Candidate{Summary: "  ", Start: model.Text("2026-06-05")}); !errors.Is(err, ErrMissingSummary) {
		t.Fatalf("expected ErrMissingSummary, got %v", err)
	}
}

func TestStampShapes(t *testing.T) {
	loc := chicago(t)
	n := New(loc, "")

	tests := []struct {
		name      string
		stamp     model.Stamp
		force     bool
		want      time.Time
		wantAllDy bool
	}{
		{
			name:  "iso minute precision",
			stamp: model.Text("2026-06-13T19:30"),
			want:  time.Date(2026, 6, 13, 19, 30, 0, 0, loc),
		},
		{
			name:  "iso seconds truncated to minute",
			stamp: model.Text("2026-06-13T19:30:45"),
			want:  time.Date(2026, 6, 13, 19, 30, 0, 0, loc),
		},
		{
			name:  "iso with offset converted",
			stamp: model.Text("2026-06-13T20:30:00-04:00"),
			want:  time.Date(2026, 6, 13, 19, 30, 0, 0, loc),
		},
		{
			name:  "aware instant converted",
			stamp: model.At(time.Date(2026, 6, 14, 0, 30, 0, 0, time.UTC)),
			want:  time.Date(2026, 6, 13, 19, 30, 0, 0, loc),
		},
		{
			name:  "naive instant assigned zone",
			stamp: model.Wall(time.Date(2026, 6, 13, 19, 30, 0, 0, time.UTC)),
			want:  time.Date(2026, 6, 13, 19, 30, 0, 0, loc),
		},
		{
			name:      "date stamp",
			stamp:     model.DateOf(time.Date(2026, 6, 5, 0, 0, 0, 0, loc)),
			want:      time.Date(2026, 6, 5, 0, 0, 0, 0, loc),
			wantAllDy: true,
		},
		{
			name:      "caller forces all-day on a datetime",
			stamp:     model.Text("2026-06-05T15:00"),
			force:     true,
			want:      time.Date(2026, 6, 5, 0, 0, 0, 0, loc),
			wantAllDy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, allDay, err := n.Instant(tt.stamp, tt.force)
			if err != nil {
				t.Fatalf("instant: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
			if got.Location() != loc {
				t.Fatalf("expected result in target zone, got %s", got.Location())
			}
			if allDay != tt.wantAllDy {
				t.Fatalf("allDay = %v, want %v", allDay, tt.wantAllDy)
			}
		})
	}
}

func TestEndDefaultsAndOrdering(t *testing.T) {
	loc := chicago(t)
	n := New(loc, "")

	ev, err := n.Normalize(model.Candidate{Summary: "Show", Start: model.Text("2026-06-13T19:00")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.End.Sub(ev.Start) != DefaultTimedDuration {
		t.Fatalf("expected default 2h duration, got %s", ev.End.Sub(ev.Start))
	}

	ev, err = n.Normalize(model.Candidate{
		Summary: "Backwards",
		Start:   model.Text("2026-06-13T19:00"),
		End:     model.Text("2026-06-13T17:00"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.End.Before(ev.Start) {
		t.Fatalf("end must not precede start: %s < %s", ev.End, ev.Start)
	}

	ev, err = n.Normalize(model.Candidate{
		Summary: "Festival weekend",
		Start:   model.Text("2026-06-05"),
		End:     model.Text("2026-06-08"),
		AllDay:  true,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := time.Date(2026, 6, 8, 0, 0, 0, 0, loc); !ev.End.Equal(want) {
		t.Fatalf("all-day end = %s, want %s", ev.End, want)
	}

	ev, err = n.Normalize(model.Candidate{
		Summary: "One day fair",
		Start:   model.Text("2026-06-05"),
		End:     model.Text("2026-06-05"),
		AllDay:  true,
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := time.Date(2026, 6, 6, 0, 0, 0, 0, loc); !ev.End.Equal(want) {
		t.Fatalf("all-day end equal to start should widen to one day, got %s, want %s", ev.End, want)
	}

	ev, err = n.Normalize(model.Candidate{
		Summary: "Residency",
		Start:   model.Text("2026-06-05T10:00"),
		End:     model.Text("2026-06-07"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if want := time.Date(2026, 6, 7, 0, 0, 0, 0, loc); !ev.End.Equal(want) || ev.AllDay {
		t.Fatalf("bare end date = %s (all-day %v), want %s", ev.End, ev.AllDay, want)
	}

	ev, err = n.Normalize(model.Candidate{
		Summary: "Morning workshop",
		Start:   model.Text("2026-06-05T10:00"),
		End:     model.Text("2026-06-05"),
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got := ev.End.Sub(ev.Start); got != DefaultTimedDuration {
		t.Fatalf("bare end date on the start day should fall back to the default end, got %s", got)
	}
}

func TestUIDStableAcrossRuns(t *testing.T) {
	n := New(chicago(t), "dfw-influx")
	c := model.Candidate{Summary: "Match", Start: model.Text("2026-06-13T19:00"), Location: "Stadium"}
	a, err := n.Normalize(c)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	b, err := New(chicago(t), "dfw-influx").Normalize(c)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if a.UID != b.UID || a.UID == "" {
		t.Fatalf("uids differ: %q vs %q", a.UID, b.UID)
	}
}
