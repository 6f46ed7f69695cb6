package extract

import "influxcal/internal/model"

var (
	// aggregatorShort reads ticket aggregator cards dated like
	// "Sat Jun 13, 2026 • 7:00 PM".
	aggregatorShort = cardLayout{
		name:      KindAggregator,
		container: `.event-card, .eventItem, [data-testid="event-card"], li.event-listing`,
		title:     ".event-name, .event-title, h3, h2",
		when:      "time, .event-date, .date",
		attr:      "datetime",
		location:  ".venue, .event-venue, .location",
		fallback: func(text string) (model.Stamp, bool) {
			return parseCompound(aggregatorShortRe, text)
		},
	}

	// aggregatorLong reads ticket aggregator cards dated like
	// "Saturday, June 13, 2026 at 7:00 PM".
	aggregatorLong = cardLayout{
		name:      KindAggregatorLong,
		container: `.event-card, .event, [data-event-id], li.event-listing`,
		title:     ".event-name, .event-title, h3, h2",
		when:      ".event-date, .date, time",
		attr:      "datetime",
		location:  ".venue, .event-venue, .location",
		fallback: func(text string) (model.Stamp, bool) {
			return parseCompound(aggregatorLongRe, text)
		},
	}

	// ticketing reads a ticketing platform whose cards are only trusted
	// when the time element carries a datetime attribute.
	ticketing = cardLayout{
		name:        KindTicketing,
		container:   `.event-card, [data-event-id], li.event`,
		title:       ".event-title, .event-name, h3",
		when:        "time",
		attr:        "datetime",
		location:    ".venue, .event-venue",
		requireAttr: true,
	}
)
