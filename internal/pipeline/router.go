package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"influxcal/internal/config"
	"influxcal/internal/extract"
	"influxcal/internal/fetch"
	appLog "influxcal/internal/log"
	"influxcal/internal/metrics"
	"influxcal/internal/model"
)

// UntitledSummary stands in for a curated event without a summary.
const UntitledSummary = "Untitled"

// Router fetches each source and hands the payload to the extractor for its
// kind. Sources are processed one at a time, in configuration order.
type Router struct {
	Registry *extract.Registry
	// Fetcher retrieves ordinary sources.
	Fetcher fetch.Fetcher
	// Browser retrieves sources with render set. When nil, those sources
	// go through Fetcher.
	Browser fetch.Fetcher
}

// Route returns the candidates of every source grouped by category. A
// source that cannot be fetched or parsed contributes nothing and the next
// source is tried. Route stops early only when ctx is done.
func (r *Router) Route(ctx context.Context, sources []config.Source) map[model.Category][]model.Candidate {
	out := make(map[model.Category][]model.Candidate)

	for i, src := range sources {
		if ctx.Err() != nil {
			appLog.Warn("routing interrupted", "remaining", len(sources)-i, "err", ctx.Err())
			break
		}

		cat, err := model.ParseCategory(src.Category)
		if err != nil {
			appLog.Warn("source skipped", "url", fetch.DisplayURL(src.URL), "kind", src.Kind, "err", err)
			metrics.SourceFailures.WithLabelValues(src.Kind, "config").Inc()
			continue
		}

		candidates, err := r.source(ctx, src)
		if err != nil {
			appLog.Warn("source contributed no events", "url", fetch.DisplayURL(src.URL), "kind", src.Kind, "err", err)
			metrics.SourceFailures.WithLabelValues(src.Kind, failureStage(err)).Inc()
			continue
		}

		for j := range candidates {
			candidates[j].Category = cat
		}
		out[cat] = append(out[cat], candidates...)
		metrics.SourceRecords.WithLabelValues(src.Kind, string(cat)).Add(float64(len(candidates)))
		appLog.Info("source extracted", "url", fetch.DisplayURL(src.URL), "kind", src.Kind, "category", cat, "records", len(candidates))
	}
	return out
}

func (r *Router) source(ctx context.Context, src config.Source) ([]model.Candidate, error) {
	if _, ok := r.Registry.Lookup(src.Kind); !ok {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnknownKind, src.Kind)
	}

	f := r.Fetcher
	if src.Render && r.Browser != nil {
		f = r.Browser
	}
	payload, err := f.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	return r.Registry.Extract(src, payload)
}

func failureStage(err error) string {
	var te *fetch.TransportError
	var pe *extract.ParseError
	switch {
	case errors.Is(err, extract.ErrUnknownKind):
		return "kind"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &pe):
		return "parse"
	default:
		return "other"
	}
}

// AppendCurated appends the curated events of each category after that
// category's source candidates. Category names are matched like source
// categories; entries under an unknown name are skipped with a warning.
func AppendCurated(routed map[model.Category][]model.Candidate, curated map[string][]config.CuratedEvent) {
	names := make([]string, 0, len(curated))
	for name := range curated {
		names = append(names, name)
	}
	sort.Strings(names)

	byCategory := make(map[model.Category][]config.CuratedEvent, len(names))
	for _, name := range names {
		cat, err := model.ParseCategory(name)
		if err != nil {
			appLog.Warn("curated events skipped", "category", name, "count", len(curated[name]))
			continue
		}
		byCategory[cat] = append(byCategory[cat], curated[name]...)
	}

	for _, cat := range model.Categories() {
		for _, ev := range byCategory[cat] {
			routed[cat] = append(routed[cat], curatedCandidate(cat, ev))
		}
	}
}

func curatedCandidate(cat model.Category, ev config.CuratedEvent) model.Candidate {
	summary := strings.TrimSpace(ev.Summary)
	if summary == "" {
		summary = UntitledSummary
	}
	return model.Candidate{
		Summary:     summary,
		Start:       model.Text(ev.Start),
		End:         model.Text(ev.End),
		AllDay:      ev.AllDay,
		Location:    ev.Location,
		Description: ev.Description,
		Category:    cat,
	}
}
