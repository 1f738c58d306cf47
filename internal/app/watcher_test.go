package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wankata/github-api-client/internal/config"
	"github.com/wankata/github-api-client/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, apiURL, hookURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		APIURL:      apiURL,
		UserAgent:   "ghwatch-test",
		HTTPTimeout: 2 * time.Second,
		TargetsFile: writeFile(t, dir, "targets.yaml", `
targets:
  - login: octocat
    request_delay_ms: 1
  - login: hubot
    request_delay_ms: 1
`),
		PublishersFile: writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: hook
    type: http
    http:
      url: `+hookURL+`
`),
		PollInterval:           time.Minute,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "data", "snapshots.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestWatcherPublishesOnlyChangedProfiles(t *testing.T) {
	var mu sync.Mutex
	bio := "first"
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/users/octocat":
			_, _ = w.Write([]byte(`{"login":"octocat","id":1,"bio":"` + bio + `"}`))
		case "/users/hubot":
			_, _ = w.Write([]byte(`{"login":"hubot","id":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	var events []publishers.Event
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	published := func() []publishers.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]publishers.Event(nil), events...)
	}

	cfg := testConfig(t, api.URL, hook.URL)
	w, err := NewWatcher(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.close()

	tgs := w.targetReg.All()
	if err := w.runOnce(context.Background(), tgs); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if got := published(); len(got) != 2 {
		t.Fatalf("expected 2 events on first pass, got %d", len(got))
	}

	if err := w.runOnce(context.Background(), tgs); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := published(); len(got) != 2 {
		t.Fatalf("unchanged profiles were republished: %d events", len(got))
	}

	mu.Lock()
	bio = "second"
	mu.Unlock()
	if err := w.runOnce(context.Background(), tgs); err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if got := published(); len(got) != 3 || got[2].TargetID != "octocat" {
		t.Fatalf("expected octocat change event, got %+v", got)
	}
}

func TestNewWatcherRejectsSelfTargetWithoutToken(t *testing.T) {
	cfg := testConfig(t, "https://api.github.com/", "https://example.com/hook")
	cfg.TargetsFile = writeFile(t, t.TempDir(), "targets.yaml", "targets:\n  - self: true\n")
	if _, err := NewWatcher(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for self target without token")
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"login":"x"}`))
	}))
	defer api.Close()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer hook.Close()

	cfg := testConfig(t, api.URL, hook.URL)
	cfg.StorageType = "none"
	w, err := NewWatcher(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
