package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is one of the fixed feed categories. Categories are assigned by
// the source descriptor, never inferred from event content.
type Category string

const (
	Sports      Category = "sports"
	Music       Category = "music"
	Conferences Category = "conferences"
	Arts        Category = "arts"
	Festivals   Category = "festivals"
	Specials    Category = "specials"
)

var categories = []Category{Sports, Music, Conferences, Arts, Festivals, Specials}

// Categories returns all categories in their fixed publication order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory accepts a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type stampKind int

const (
	stampNone stampKind = iota
	stampAware
	stampWall
	stampDate
	stampText
)

// Stamp is a start or end value as an extractor produced it. Extractors
// pass through whichever form is convenient; internal/normalize is the only
// place that turns a Stamp into a zoned instant.
type Stamp struct {
	kind stampKind
	t    time.Time
	text string
}

// At wraps an instant whose zone is meaningful.
func At(t time.Time) Stamp { return Stamp{kind: stampAware, t: t} }

// Wall wraps an instant whose zone must be ignored; only its wall-clock
// fields are used.
func Wall(t time.Time) Stamp { return Stamp{kind: stampWall, t: t} }

// DateOf wraps a calendar date (all-day). Only year, month and day are used.
func DateOf(t time.Time) Stamp { return Stamp{kind: stampDate, t: t} }

// Text wraps a raw string such as "2026-06-05" or "2026-06-05T19:30".
// Blank text is treated as absent.
func Text(s string) Stamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Stamp{}
	}
	return Stamp{kind: stampText, text: s}
}

func (s Stamp) IsZero() bool  { return s.kind == stampNone }
func (s Stamp) IsAware() bool { return s.kind == stampAware }
func (s Stamp) IsWall() bool  { return s.kind == stampWall }
func (s Stamp) IsDate() bool  { return s.kind == stampDate }
func (s Stamp) IsText() bool  { return s.kind == stampText }

// Time returns the wrapped instant for At, Wall and DateOf stamps.
func (s Stamp) Time() time.Time { return s.t }

// Raw returns the wrapped string for Text stamps.
func (s Stamp) Raw() string { return s.text }

func (s Stamp) String() string {
	switch s.kind {
	case stampAware, stampWall:
		return s.t.Format("2006-01-02T15:04:05")
	case stampDate:
		return s.t.Format("2006-01-02")
	case stampText:
		return s.text
	default:
		return ""
	}
}

// Candidate is an unnormalized event produced by an extractor or taken
// from a curated literal.
type Candidate struct {
	Summary     string
	Start       Stamp
	End         Stamp
	Location    string
	Description string
	// AllDay is set by callers that know the event is all-day regardless of
	// the start representation (curated events).
	AllDay bool

	Category  Category
	SourceURL string
}

// Event is a canonical, normalized event. End is always set and never
// before Start.
type Event struct {
	UID         string
	Summary     string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	Description string
	Category    Category
}

// uidNamespace scopes the name-based UUIDs derived for events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("influxcal:event"))

// EventUID derives a stable identifier from summary, start, end and
// location. Identical input always yields the same UID, across runs and
// processes.
func EventUID(summary string, start, end time.Time, location, domain string) string {
	var b strings.Builder
	b.WriteString(summary)
	b.WriteByte(0x1f)
	b.WriteString(start.UTC().Format(time.RFC3339))
	b.WriteByte(0x1f)
	b.WriteString(end.UTC().Format(time.RFC3339))
	b.WriteByte(0x1f)
	b.WriteString(location)

	id := uuid.NewSHA1(uidNamespace, []byte(b.String())).String()
	if domain == "" {
		return id
	}
	return id + "@" + domain
}
