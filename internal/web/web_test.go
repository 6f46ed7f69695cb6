package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"influxcal/internal/config"
	"influxcal/internal/feed"
	"influxcal/internal/model"
	"influxcal/internal/pipeline"
)

func publishedServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	start := time.Date(2026, 6, 13, 19, 0, 0, 0, time.UTC)
	events := []model.Event{
		{UID: "a@dfw-influx", Summary: "Concert", Start: start, End: start.Add(2 * time.Hour), Category: model.Music},
		{UID: "b@dfw-influx", Summary: "Gala", Start: start.Add(24 * time.Hour), End: start.Add(26 * time.Hour), Category: model.Arts},
	}
	build := pipeline.Assemble(map[model.Category][]model.Event{
		model.Music: events[:1],
		model.Arts:  events[1:],
	}, events)
	build.Generated = time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)

	files, err := feed.Render(cfg, &build)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	s := NewServer(cfg)
	s.Publish(&build, files)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, NewServer(config.DefaultConfig()).Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestFeedsBeforeFirstBuild(t *testing.T) {
	h := NewServer(config.DefaultConfig()).Handler()
	for _, target := range []string{"/feeds/master.ics", "/api/events", "/api/feeds"} {
		if rec := get(t, h, target); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s = %d, want 503", target, rec.Code)
		}
	}
}

func TestServeFeed(t *testing.T) {
	h := publishedServer(t, config.DefaultConfig()).Handler()

	rec := get(t, h, "/feeds/music.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "SUMMARY:Concert") || strings.Contains(body, "SUMMARY:Gala") {
		t.Fatalf("unexpected music feed:\n%s", body)
	}

	if rec := get(t, h, "/feeds/nope.ics"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown feed = %d, want 404", rec.Code)
	}
}

func TestAPIEvents(t *testing.T) {
	h := publishedServer(t, config.DefaultConfig()).Handler()

	var resp eventsResponse
	rec := get(t, h, "/api/events")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Feed != pipeline.MasterFeed || len(resp.Events) != 2 {
		t.Fatalf("master response = %+v", resp)
	}

	rec = get(t, h, "/api/events?category=Arts")
	resp = eventsResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Feed != "arts" || len(resp.Events) != 1 || resp.Events[0].Summary != "Gala" {
		t.Fatalf("arts response = %+v", resp)
	}

	rec = get(t, h, "/api/events?limit=1")
	resp = eventsResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("limit ignored: %d events", len(resp.Events))
	}

	if rec := get(t, h, "/api/events?category=nightlife"); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category = %d, want 400", rec.Code)
	}
}

func TestAPIFeeds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Files = map[string]string{"specials": "specials_worldcup.ics"}
	h := publishedServer(t, cfg).Handler()

	var resp feedsResponse
	if err := json.Unmarshal(get(t, h, "/api/feeds").Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Feeds) != 7 {
		t.Fatalf("expected 7 feeds, got %d", len(resp.Feeds))
	}
	byFeed := make(map[string]feedDTO)
	for _, f := range resp.Feeds {
		byFeed[f.Feed] = f
	}
	if byFeed["specials"].Path != "/feeds/specials_worldcup.ics" {
		t.Fatalf("specials path = %q", byFeed["specials"].Path)
	}
	if byFeed["music"].Events != 1 || byFeed[pipeline.MasterFeed].Events != 2 {
		t.Fatalf("unexpected counts %+v", byFeed)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := publishedServer(t, cfg).Handler()

	if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health should skip auth, got %d", rec.Code)
	}
	if rec := get(t, h, "/feeds/master.ics"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/feeds/master.ics", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized request = %d", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	s := publishedServer(t, config.DefaultConfig())
	h := s.Handler()

	post := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
		return rec.Code
	}

	if code := post(); code != http.StatusNotImplemented {
		t.Fatalf("refresh without hook = %d", code)
	}

	calls := 0
	s.SetRefresh(func(context.Context) error {
		calls++
		return nil
	})
	if code := post(); code != http.StatusOK || calls != 1 {
		t.Fatalf("refresh = %d, calls = %d", code, calls)
	}

	s.SetRefresh(func(context.Context) error { return errors.New("boom") })
	if code := post(); code != http.StatusInternalServerError {
		t.Fatalf("failing refresh = %d", code)
	}

	if rec := get(t, h, "/api/refresh"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewServer(config.DefaultConfig()).Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "influxcal_last_build_timestamp_seconds") {
		t.Fatalf("metrics = %d:\n%s", res.StatusCode, body)
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", NewServer(config.DefaultConfig()).Handler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
