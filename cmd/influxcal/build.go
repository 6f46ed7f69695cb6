package main

import (
	"context"
	"fmt"
	"sync"

	"influxcal/internal/config"
	"influxcal/internal/feed"
	appLog "influxcal/internal/log"
	"influxcal/internal/metrics"
	"influxcal/internal/pipeline"
	"influxcal/internal/web"
)

// builder runs one build at a time and publishes the result to disk and,
// when serving, to the web server.
type builder struct {
	cfg    *config.Config
	deps   pipeline.Deps
	writer *feed.Writer
	server *web.Server

	mu sync.Mutex
}

func newBuilder(cfg *config.Config, deps pipeline.Deps, server *web.Server) *builder {
	return &builder{
		cfg:    cfg,
		deps:   deps,
		writer: feed.NewWriter(cfg),
		server: server,
	}
}

// run builds, writes and publishes. Overlapping calls wait for each other.
// Files that could not be written are reported, but the build is still
// published to the server.
func (b *builder) run(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	build, err := pipeline.Run(ctx, b.cfg, b.deps)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	files, err := feed.Render(b.cfg, build)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	writeErr := b.writer.WriteAll(files)
	if b.server != nil {
		b.server.Publish(build, files)
	}
	metrics.Built(build.Generated, build.Sizes())

	sizes := build.Sizes()
	kv := make([]any, 0, 2*len(files)+2)
	kv = append(kv, "dir", b.writer.Dir)
	for _, f := range files {
		kv = append(kv, f.Feed, sizes[f.Feed])
	}
	appLog.Info("feeds published", kv...)

	if writeErr != nil {
		return fmt.Errorf("write feeds: %w", writeErr)
	}
	return nil
}
