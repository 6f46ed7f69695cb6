// Package feed renders a build into iCalendar files and publishes them to
// the output directory.
package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"influxcal/internal/config"
	"influxcal/internal/ics"
	appLog "influxcal/internal/log"
	"influxcal/internal/model"
	"influxcal/internal/pipeline"
)

// MasterFile is the default file name of the combined feed.
const MasterFile = "master.ics"

// File is one rendered feed.
type File struct {
	// Feed is the category name, or pipeline.MasterFeed.
	Feed string
	Name string
	Data []byte
}

// Render encodes every category collection plus the master collection, in
// category order with master last.
func Render(cfg *config.Config, build *pipeline.Build) ([]File, error) {
	files := make([]File, 0, len(model.Categories())+1)
	for _, cat := range model.Categories() {
		data, err := ics.Encode(ics.Calendar{
			Name:     ics.CategoryCalendarName(cfg.CalendarPrefix, cat),
			Timezone: cfg.Timezone,
			Events:   build.Events(cat),
		}, build.Generated)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", cat, err)
		}
		files = append(files, File{Feed: string(cat), Name: cfg.FileName(cat), Data: data})
	}

	data, err := ics.Encode(ics.Calendar{
		Name:     cfg.MasterName,
		Timezone: cfg.Timezone,
		Events:   build.Master,
	}, build.Generated)
	if err != nil {
		return nil, fmt.Errorf("encode master: %w", err)
	}
	files = append(files, File{Feed: pipeline.MasterFeed, Name: masterFileName(cfg), Data: data})
	return files, nil
}

func masterFileName(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.Files[pipeline.MasterFeed]); name != "" {
		return name
	}
	return MasterFile
}

// Writer publishes rendered feeds into Dir, replacing earlier output.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer for cfg.OutputDir.
func NewWriter(cfg *config.Config) *Writer {
	return &Writer{Dir: cfg.OutputDir}
}

// WriteAll writes every file. A file that fails is logged and the rest are
// still written; the failures are returned joined.
func (w *Writer) WriteAll(files []File) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var errs []error
	for _, f := range files {
		path := filepath.Join(w.Dir, f.Name)
		if err := writeAtomic(path, f.Data); err != nil {
			appLog.Error("write feed failed", err, "feed", f.Feed, "path", path)
			errs = append(errs, fmt.Errorf("write %s: %w", f.Name, err))
			continue
		}
		appLog.Debug("feed written", "feed", f.Feed, "path", path, "bytes", len(f.Data))
	}
	return errors.Join(errs...)
}

// writeAtomic replaces path through a temp file in the same directory so
// readers never observe a partial feed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".influxcal-feed-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
