package pipeline

import (
	"time"

	"influxcal/internal/model"
)

// MasterFeed is the name the combined collection is reported under.
const MasterFeed = "master"

// Build is the result of one pipeline run: one collection per category and
// the master collection across all of them.
type Build struct {
	Generated  time.Time
	Categories map[model.Category][]model.Event
	Master     []model.Event
}

// Assemble groups the final events. Every category is present, possibly
// empty. No deduplication happens here; an event appears once in its
// category and once in master.
func Assemble(perCategory map[model.Category][]model.Event, master []model.Event) Build {
	b := Build{
		Categories: make(map[model.Category][]model.Event, len(model.Categories())),
		Master:     make([]model.Event, 0, len(master)),
	}
	for _, cat := range model.Categories() {
		events := perCategory[cat]
		b.Categories[cat] = append(make([]model.Event, 0, len(events)), events...)
	}
	b.Master = append(b.Master, master...)
	return b
}

// Events returns the collection for cat.
func (b *Build) Events(cat model.Category) []model.Event {
	return b.Categories[cat]
}

// Sizes reports the number of events per category name plus master.
func (b *Build) Sizes() map[string]int {
	sizes := make(map[string]int, len(b.Categories)+1)
	for cat, events := range b.Categories {
		sizes[string(cat)] = len(events)
	}
	sizes[MasterFeed] = len(b.Master)
	return sizes
}
