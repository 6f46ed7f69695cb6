// Package extract turns one fetched source payload into candidate records.
// Each source kind has its own Extractor; the Registry maps kinds to them so
// new markup shapes can be added without touching the router.
package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"influxcal/internal/config"
	"influxcal/internal/model"
)

// Source kinds understood by NewRegistry.
const (
	KindICS            = "ics"
	KindAttrCards      = "attr_cards"
	KindArticleCards   = "article_cards"
	KindDateList       = "date_list"
	KindAggregator     = "aggregator"
	KindAggregatorLong = "aggregator_long"
	KindTicketing      = "ticketing"
	KindGeneric        = "generic"
)

// ErrUnknownKind is returned by Registry.Extract for unregistered kinds.
var ErrUnknownKind = errors.New("unknown source kind")

// Extractor produces zero or more candidates from one payload. Records that
// cannot be read are skipped; an error means the payload as a whole was
// unusable.
type Extractor interface {
	Extract(src config.Source, payload []byte) ([]model.Candidate, error)
}

// Func adapts a function to the Extractor interface.
type Func func(src config.Source, payload []byte) ([]model.Candidate, error)

func (f Func) Extract(src config.Source, payload []byte) ([]model.Candidate, error) {
	return f(src, payload)
}

// ParseError reports a payload that could not be read at all.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options carries run-wide settings some extractors need.
type Options struct {
	// Location is the target zone; feeds use it for floating times.
	Location *time.Location
	// RangeStart and RangeEnd bound recurrence expansion.
	RangeStart time.Time
	RangeEnd   time.Time
}

// Registry maps source kinds to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with every built-in kind registered.
func NewRegistry(opts Options) *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(KindICS, &Feed{Location: opts.Location, RangeStart: opts.RangeStart, RangeEnd: opts.RangeEnd})
	r.Register(KindAttrCards, attrCards)
	r.Register(KindArticleCards, articleCards)
	r.Register(KindDateList, dateList)
	r.Register(KindAggregator, aggregatorShort)
	r.Register(KindAggregatorLong, aggregatorLong)
	r.Register(KindTicketing, ticketing)
	r.Register(KindGeneric, Func(Generic))
	return r
}

// Register adds or replaces the extractor for kind.
func (r *Registry) Register(kind string, e Extractor) {
	r.extractors[normalizeKind(kind)] = e
}

// Lookup returns the extractor registered for kind.
func (r *Registry) Lookup(kind string) (Extractor, bool) {
	e, ok := r.extractors[normalizeKind(kind)]
	return e, ok
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.extractors))
	for k := range r.extractors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Extract runs the extractor for src.Kind and fills source-level defaults:
// the venue stands in for a missing location and the source URL for a
// missing description.
func (r *Registry) Extract(src config.Source, payload []byte) ([]model.Candidate, error) {
	e, ok := r.Lookup(src.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, src.Kind)
	}
	out, err := e.Extract(src, payload)
	if err != nil {
		return nil, err
	}
	for i := range out {
		c := &out[i]
		c.SourceURL = src.URL
		if c.Location == "" {
			c.Location = strings.TrimSpace(src.Venue)
		}
		if c.Description == "" {
			c.Description = src.URL
		}
	}
	return out, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

// clean collapses runs of whitespace, as found in scraped markup.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
