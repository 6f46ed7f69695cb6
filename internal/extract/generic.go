package extract

import (
	"errors"
	"fmt"
	"strings"

	"influxcal/internal/config"
	"influxcal/internal/model"
)

// Generic extracts cards using the selectors configured on the source, so a
// new site can be onboarded from configuration alone.
func Generic(src config.Source, payload []byte) ([]model.Candidate, error) {
	layout, err := genericLayout(src.Selectors)
	if err != nil {
		return nil, &ParseError{URL: src.URL, Err: err}
	}
	return layout.Extract(src, payload)
}

func genericLayout(sel *config.Selectors) (cardLayout, error) {
	if sel == nil {
		return cardLayout{}, errors.New("generic source requires selectors")
	}
	if strings.TrimSpace(sel.Container) == "" || strings.TrimSpace(sel.Title) == "" {
		return cardLayout{}, errors.New("generic source requires selectors.container and selectors.title")
	}

	def := defaultEventTime
	if sel.DefaultTime != "" {
		ct, ok := parseClock(sel.DefaultTime)
		if !ok {
			return cardLayout{}, fmt.Errorf("invalid selectors.default_time %q", sel.DefaultTime)
		}
		def = ct
	}

	return cardLayout{
		name:      KindGeneric,
		container: sel.Container,
		title:     sel.Title,
		when:      sel.Datetime,
		attr:      sel.Attr,
		fallback:  longDateFallback(def),
	}, nil
}
