// Package pipeline runs one build: route sources to extractors, normalize
// the candidates, keep those inside the publication window, deduplicate and
// assemble the per-category and master collections.
package pipeline

import (
	"context"
	"errors"
	"time"

	"influxcal/internal/config"
	"influxcal/internal/extract"
	"influxcal/internal/fetch"
	appLog "influxcal/internal/log"
	"influxcal/internal/metrics"
	"influxcal/internal/model"
	"influxcal/internal/normalize"
)

// Deps holds what a build needs from outside. Zero fields get defaults
// from the configuration.
type Deps struct {
	Fetcher fetch.Fetcher
	Browser fetch.Fetcher
	Now     func() time.Time
}

// Run performs one full build. Bad sources, bad records and a bad timezone
// are logged and survived; the only error is ctx being done.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Build, error) {
	if cfg == nil {
		cfg = config.Empty()
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("invalid timezone, using fallback", "timezone", cfg.Timezone, "fallback", loc.String(), "err", err)
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	started := now().In(loc)

	window, err := NewWindow(cfg, started, loc)
	if err != nil {
		appLog.Warn("invalid horizon, using horizon_days", "horizon_days", cfg.HorizonDays, "err", err)
	}

	if deps.Fetcher == nil {
		deps.Fetcher = fetch.NewClient(cfg.HTTP)
	}
	if deps.Browser == nil {
		if b := fetch.NewBrowser(cfg.Browser); b != nil {
			deps.Browser = b
		}
	}

	router := &Router{
		Registry: extract.NewRegistry(extract.Options{
			Location:   loc,
			RangeStart: window.Start,
			RangeEnd:   window.End,
		}),
		Fetcher: deps.Fetcher,
		Browser: deps.Browser,
	}

	routed := router.Route(ctx, cfg.Sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	AppendCurated(routed, cfg.Events)

	norm := normalize.New(loc, cfg.UIDDomain)
	perCategory := make(map[model.Category][]model.Event, len(model.Categories()))
	masterInput := make([]model.Event, 0)
	for _, cat := range model.Categories() {
		events := normalizeAll(norm, cat, routed[cat])

		events, outside := window.Filter(events)
		metrics.Dropped(metrics.DropWindow, outside)

		masterInput = append(masterInput, events...)

		deduped := Dedup(events)
		metrics.Dropped(metrics.DropDuplicate, len(events)-len(deduped))
		perCategory[cat] = deduped
	}

	build := Assemble(perCategory, Dedup(masterInput))
	build.Generated = started

	appLog.Info("build assembled",
		"window_start", window.Start.Format(time.RFC3339),
		"window_end", window.End.Format(time.RFC3339),
		"master", len(build.Master),
	)
	return &build, nil
}

func normalizeAll(norm *normalize.Normalizer, cat model.Category, candidates []model.Candidate) []model.Event {
	out := make([]model.Event, 0, len(candidates))
	for _, c := range candidates {
		ev, err := norm.Normalize(c)
		if err != nil {
			reason := metrics.DropMissing
			if errors.Is(err, normalize.ErrUnparseable) {
				reason = metrics.DropUnparseable
			}
			metrics.Dropped(reason, 1)
			origin := "curated"
			if c.SourceURL != "" {
				origin = fetch.DisplayURL(c.SourceURL)
			}
			appLog.Debug("candidate dropped", "category", cat, "summary", c.Summary, "source", origin, "err", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}
