package publishers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wankata/github-api-client/internal/domain"
)

func snapshotEvent() Event {
	return NewEvent(domain.Snapshot{
		TargetID: "octocat",
		Login:    "octocat",
		Kind:     domain.KindUser,
		Digest:   strings.Repeat("ab", 32),
		User:     json.RawMessage(`{"login":"octocat","id":583231,"blog":"https://github.blog"}`),
		Blog: &domain.BlogMeta{
			URL:      "https://github.blog",
			Title:    "The GitHub Blog",
			ImageURL: "https://github.blog/og.png",
		},
	})
}

func newTestHTTPPublisher(t *testing.T, url string, headers map[string]string) Publisher {
	t.Helper()
	pub, err := newHTTPPublisher(context.Background(), PublisherConfig{
		ID:   "profiles-hook",
		Type: TypeHTTP,
		HTTP: &HTTPPublisherConfig{URL: url, Headers: headers, TimeoutSeconds: 2},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}
	return pub
}

func TestHTTPPublisherPostsSnapshotEvent(t *testing.T) {
	var (
		got     map[string]json.RawMessage
		method  string
		source  string
		ctype   string
		decoded bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, source, ctype = r.Method, r.Header.Get("X-Source"), r.Header.Get("Content-Type")
		decoded = json.NewDecoder(r.Body).Decode(&got) == nil
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	evt := snapshotEvent()
	pub := newTestHTTPPublisher(t, srv.URL, map[string]string{"X-Source": "ghwatch"})
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if method != http.MethodPost || source != "ghwatch" || !strings.HasPrefix(ctype, "application/json") {
		t.Fatalf("unexpected request: method=%s source=%q content-type=%q", method, source, ctype)
	}
	if !decoded {
		t.Fatalf("body was not a JSON object")
	}
	for _, key := range []string{"target_id", "login", "kind", "digest", "user", "blog", "collected_at"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("event missing %q: %s", key, mapKeys(got))
		}
	}
	if string(got["user"]) != string(evt.User) {
		t.Fatalf("user payload altered: %s", got["user"])
	}
	var blog domain.BlogMeta
	if err := json.Unmarshal(got["blog"], &blog); err != nil || blog.Title != "The GitHub Blog" {
		t.Fatalf("unexpected blog %s (%v)", got["blog"], err)
	}
	var collected time.Time
	if err := json.Unmarshal(got["collected_at"], &collected); err != nil || collected.IsZero() {
		t.Fatalf("collected_at not a timestamp: %s", got["collected_at"])
	}
}

func TestHTTPPublisherOmitsMissingBlog(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer srv.Close()

	evt := snapshotEvent()
	evt.Blog = nil
	if err := newTestHTTPPublisher(t, srv.URL, nil).Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if strings.Contains(body, `"blog"`) {
		t.Fatalf("blog should be omitted: %s", body)
	}
}

func TestHTTPPublisherReportsRejectedEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "digest already seen", http.StatusConflict)
	}))
	defer srv.Close()

	err := newTestHTTPPublisher(t, srv.URL, nil).Publish(context.Background(), snapshotEvent())
	if err == nil || !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "digest already seen") {
		t.Fatalf("expected 409 with body snippet, got %v", err)
	}
}

func mapKeys(m map[string]json.RawMessage) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}
