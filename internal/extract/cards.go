package extract

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"influxcal/internal/config"
	appLog "influxcal/internal/log"
	"influxcal/internal/model"
)

// cardLayout describes where a card-based page keeps its events. Every HTML
// extractor is a cardLayout; they differ in selectors and in how a start is
// recovered when no machine-readable instant is present.
type cardLayout struct {
	name string

	// container matches one element per event. Comma-separated
	// alternatives are allowed.
	container string
	title     string
	// when locates the time indicator inside the card. Empty means the card
	// itself.
	when string
	// attr names the attribute on the time indicator carrying an instant.
	attr string
	// location, when set, is read from the card.
	location string

	// requireAttr skips cards whose time indicator lacks attr.
	requireAttr bool
	// fallback recovers a start from text; nil means no text fallback.
	fallback func(text string) (model.Stamp, bool)
}

// Extract implements Extractor.
func (l cardLayout) Extract(src config.Source, payload []byte) ([]model.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &ParseError{URL: src.URL, Err: fmt.Errorf("read html: %w", err)}
	}

	out := make([]model.Candidate, 0)
	skipped := 0
	doc.Find(l.container).Each(func(_ int, card *goquery.Selection) {
		c, ok := l.card(card)
		if !ok {
			skipped++
			return
		}
		out = append(out, c)
	})

	if skipped > 0 {
		appLog.Debug("cards skipped", "layout", l.name, "url", src.URL, "skipped", skipped, "kept", len(out))
	}
	return out, nil
}

func (l cardLayout) card(card *goquery.Selection) (model.Candidate, bool) {
	title := clean(card.Find(l.title).First().Text())
	if title == "" {
		return model.Candidate{}, false
	}

	start, ok := l.start(card)
	if !ok {
		return model.Candidate{}, false
	}

	c := model.Candidate{Summary: title, Start: start}
	if l.location != "" {
		c.Location = clean(card.Find(l.location).First().Text())
	}
	return c, true
}

func (l cardLayout) start(card *goquery.Selection) (model.Stamp, bool) {
	when := card
	if l.when != "" {
		when = card.Find(l.when).First()
	}

	if l.attr != "" && when.Length() > 0 {
		if v, ok := when.Attr(l.attr); ok {
			if s := model.Text(v); !s.IsZero() {
				return s, true
			}
		}
	}
	if l.requireAttr || l.fallback == nil {
		return model.Stamp{}, false
	}

	if when.Length() > 0 {
		if s, ok := l.fallback(clean(when.Text())); ok {
			return s, true
		}
	}
	return l.fallback(clean(card.Text()))
}

func longDateFallback(def clockTime) func(string) (model.Stamp, bool) {
	return func(text string) (model.Stamp, bool) {
		return parseLongDate(text, def)
	}
}

// Fixed-layout card extractors.
var (
	// attrCards reads cards tagged with data-event attributes.
	attrCards = cardLayout{
		name:      KindAttrCards,
		container: "[data-event]",
		title:     "[data-event-title], h2, h3",
		when:      "[data-event-start], time",
		attr:      "datetime",
		location:  "[data-event-venue], .venue",
		fallback:  longDateFallback(defaultEventTime),
	}

	// articleCards reads blog-style listings with one article per event.
	articleCards = cardLayout{
		name:      KindArticleCards,
		container: "article",
		title:     "h2, h3, .entry-title",
		when:      "time, .date, .event-date",
		attr:      "datetime",
		location:  ".location, .venue",
		fallback:  longDateFallback(defaultEventTime),
	}

	// dateList reads listings whose date sits in a date-classed element.
	dateList = cardLayout{
		name:      KindDateList,
		container: "li.event, .event-item, .event-listing",
		title:     ".event-title, .title, a",
		when:      ".event-date, .date",
		attr:      "data-date",
		location:  ".event-location, .location",
		fallback:  longDateFallback(defaultEventTime),
	}
)
