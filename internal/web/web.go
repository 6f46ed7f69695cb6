package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"influxcal/internal/config"
	"influxcal/internal/feed"
	appLog "influxcal/internal/log"
	"influxcal/internal/model"
	"influxcal/internal/pipeline"
)

// Server publishes the feeds of the last completed build over HTTP, plus a
// JSON view of its events and the Prometheus metrics.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// current is replaced as a whole after every build.
	mu      sync.RWMutex
	current *snapshot

	refresh func(context.Context) error
}

type snapshot struct {
	build       *pipeline.Build
	files       []feed.File
	byName      map[string]feed.File
	publishedAt time.Time
}

// NewServer constructs a new Server. It serves 503 for feeds until the
// first Publish.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetRefresh installs the function behind POST /api/refresh.
func (s *Server) SetRefresh(fn func(context.Context) error) {
	s.refresh = fn
}

// Publish makes build and its rendered files the served state.
func (s *Server) Publish(build *pipeline.Build, files []feed.File) {
	snap := &snapshot{
		build:       build,
		files:       files,
		byName:      make(map[string]feed.File, len(files)),
		publishedAt: time.Now(),
	}
	for _, f := range files {
		snap.byName[f.Name] = f
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

func (s *Server) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth rather than lock everyone out.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="influxcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /feeds/{name}", s.handleFeed)
	s.mux.HandleFunc("GET /api/feeds", s.handleFeeds)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleFeed serves one rendered calendar by file name, e.g.
// GET /feeds/sports.ics.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		http.Error(w, "no build published yet", http.StatusServiceUnavailable)
		return
	}
	f, ok := snap.byName[r.PathValue("name")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Last-Modified", snap.build.Generated.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

// feedDTO describes one published feed.
type feedDTO struct {
	Feed   string `json:"feed"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Events int    `json:"events"`
}

type feedsResponse struct {
	Generated time.Time `json:"generated"`
	Feeds     []feedDTO `json:"feeds"`
}

func (s *Server) handleFeeds(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no build published yet")
		return
	}

	sizes := snap.build.Sizes()
	resp := feedsResponse{
		Generated: snap.build.Generated,
		Feeds:     make([]feedDTO, 0, len(snap.files)),
	}
	for _, f := range snap.files {
		resp.Feeds = append(resp.Feeds, feedDTO{
			Feed:   f.Feed,
			Name:   f.Name,
			Path:   "/feeds/" + f.Name,
			Events: sizes[f.Feed],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// eventDTO is a JSON-friendly view of an event.
type eventDTO struct {
	UID         string    `json:"uid"`
	Category    string    `json:"category"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type eventsResponse struct {
	Feed      string     `json:"feed"`
	Generated time.Time  `json:"generated"`
	Timezone  string     `json:"timezone"`
	Events    []eventDTO `json:"events"`
}

// handleEvents returns the events of one collection.
//
// GET /api/events?category=music&limit=50
//   - category: category name; empty or "master" selects the master feed
//   - limit:    maximum number of events (default all)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no build published yet")
		return
	}

	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("category"))

	feedName := pipeline.MasterFeed
	events := snap.build.Master
	if name != "" && !strings.EqualFold(name, pipeline.MasterFeed) {
		cat, err := model.ParseCategory(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		feedName = string(cat)
		events = snap.build.Events(cat)
	}

	limit := parseIntDefault(q.Get("limit"), len(events))
	if limit < 0 || limit > len(events) {
		limit = len(events)
	}

	dtos := make([]eventDTO, 0, limit)
	for _, ev := range events[:limit] {
		dtos = append(dtos, eventDTO{
			UID:         ev.UID,
			Category:    string(ev.Category),
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			AllDay:      ev.AllDay,
			Start:       ev.Start,
			End:         ev.End,
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Feed:      feedName,
		Generated: snap.build.Generated,
		Timezone:  s.cfg.Timezone,
		Events:    dtos,
	})
}

// handleRefresh runs a build immediately and publishes it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not available")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		appLog.Error("refresh failed", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	snap := s.snapshot()
	resp := map[string]any{"status": "ok"}
	if snap != nil {
		resp["generated"] = snap.build.Generated
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
