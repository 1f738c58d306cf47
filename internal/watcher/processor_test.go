package watcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wankata/github-api-client/internal/domain"
	"github.com/wankata/github-api-client/pkg/github"
	"github.com/wankata/github-api-client/pkg/publishers"
	"github.com/wankata/github-api-client/pkg/targets"
)

// fakeUsers returns preset records or an error.
type fakeUsers struct {
	self  map[string]any
	users map[string]map[string]any
	err   error
	calls []string
}

func (f *fakeUsers) AuthenticatedUser(context.Context) (*github.AuthenticatedUser, error) {
	f.calls = append(f.calls, "self")
	if f.err != nil {
		return nil, f.err
	}
	return github.NewAuthenticatedUser(f.self)
}

func (f *fakeUsers) User(_ context.Context, login string) (*github.User, error) {
	f.calls = append(f.calls, login)
	if f.err != nil {
		return nil, f.err
	}
	fields, ok := f.users[login]
	if !ok {
		return nil, errors.New("not found")
	}
	return github.NewUser(fields)
}

// fakePublisher records published events and can inject errors.
type fakePublisher struct {
	mu        sync.Mutex
	events    []publishers.Event
	delivered int
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.delivered, f.err
}

// fakeStore keeps digests in memory.
type fakeStore struct {
	digests map[string]string
	saveErr error
}

func (f *fakeStore) LastDigest(id string) (string, bool, error) {
	d, ok := f.digests[id]
	return d, ok, nil
}

func (f *fakeStore) SaveDigest(id, digest string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.digests == nil {
		f.digests = make(map[string]string)
	}
	f.digests[id] = digest
	return nil
}

type fakeScraper struct {
	urls []string
	err  error
}

func (f *fakeScraper) Scrape(_ context.Context, blogURL string) (*domain.BlogMeta, error) {
	f.urls = append(f.urls, blogURL)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BlogMeta{URL: blogURL, Title: "Blog"}, nil
}

func octocat() map[string]any {
	return map[string]any{"login": "octocat", "id": 1, "blog": "octocat.dev"}
}

func TestProcessorPublishesChangedSnapshotAndSavesDigest(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	pub := &fakePublisher{delivered: 1}
	store := &fakeStore{}
	scraper := &fakeScraper{}

	p := NewTargetProcessor(users, scraper, pub, store)
	target := targets.Target{ID: "octocat", Login: "octocat", ScrapeBlog: true}

	outcome, err := p.Process(context.Background(), target)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome != OutcomePublished {
		t.Fatalf("expected published, got %s", outcome)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Kind != domain.KindUser || evt.Login != "octocat" || evt.Blog == nil {
		t.Fatalf("unexpected event %+v", evt)
	}
	if !strings.Contains(string(evt.User), `"login":"octocat"`) {
		t.Fatalf("user payload missing login: %s", evt.User)
	}
	if store.digests["octocat"] != evt.Digest || len(evt.Digest) != 64 {
		t.Fatalf("digest not saved: %#v", store.digests)
	}
	if len(scraper.urls) != 1 || scraper.urls[0] != "octocat.dev" {
		t.Fatalf("unexpected scrape calls %v", scraper.urls)
	}

	// Same payload again: nothing is published.
	outcome, err = p.Process(context.Background(), target)
	if err != nil || outcome != OutcomeUnchanged {
		t.Fatalf("expected unchanged, got %s err=%v", outcome, err)
	}
	if len(pub.events) != 1 || len(scraper.urls) != 1 {
		t.Fatalf("unchanged snapshot must not be published or scraped")
	}
}

func TestProcessorSelfTargetUsesAuthenticatedUser(t *testing.T) {
	self := octocat()
	self["two_factor_authentication"] = true
	users := &fakeUsers{self: self}
	pub := &fakePublisher{delivered: 1}

	p := NewTargetProcessor(users, nil, pub, nil)
	if _, err := p.Process(context.Background(), targets.Target{ID: "self", Self: true}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(users.calls) != 1 || users.calls[0] != "self" {
		t.Fatalf("expected authenticated user call, got %v", users.calls)
	}
	if pub.events[0].Kind != domain.KindAuthenticatedUser {
		t.Fatalf("unexpected kind %q", pub.events[0].Kind)
	}
	if !strings.Contains(string(pub.events[0].User), `"two_factor_authentication":true`) {
		t.Fatalf("private field missing: %s", pub.events[0].User)
	}
}

func TestProcessorKeepsDigestWhenNoPublisherSucceeded(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	pub := &fakePublisher{err: errors.New("queue down")}
	store := &fakeStore{}

	p := NewTargetProcessor(users, nil, pub, store)
	outcome, err := p.Process(context.Background(), targets.Target{ID: "octocat", Login: "octocat"})
	if err == nil || !strings.Contains(err.Error(), "queue down") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if outcome != OutcomeDropped {
		t.Fatalf("expected dropped, got %s", outcome)
	}
	if _, ok := store.digests["octocat"]; ok {
		t.Fatalf("digest must not be saved when nothing was delivered")
	}
}

func TestProcessorPartialDeliverySavesDigestAndReportsError(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	pub := &fakePublisher{delivered: 1, err: errors.New("sns throttled")}
	store := &fakeStore{}

	p := NewTargetProcessor(users, nil, pub, store)
	outcome, err := p.Process(context.Background(), targets.Target{ID: "octocat", Login: "octocat"})
	if err == nil || outcome != OutcomePublished {
		t.Fatalf("expected published with error, got %s err=%v", outcome, err)
	}
	if _, ok := store.digests["octocat"]; !ok {
		t.Fatalf("digest must be saved after partial delivery")
	}
}

func TestProcessorScrapeFailureStillPublishes(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	pub := &fakePublisher{delivered: 1}

	p := NewTargetProcessor(users, &fakeScraper{err: errors.New("timeout")}, pub, nil)
	if _, err := p.Process(context.Background(), targets.Target{ID: "o", Login: "octocat", ScrapeBlog: true}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if pub.events[0].Blog != nil {
		t.Fatalf("blog must be empty after failed scrape")
	}
}

func TestProcessorFetchErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	p := NewTargetProcessor(&fakeUsers{err: boom}, nil, &fakePublisher{delivered: 1}, nil)
	_, err := p.Process(context.Background(), targets.Target{ID: "x", Login: "ghost"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestServiceRunJoinsTargetErrors(t *testing.T) {
	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	pub := &fakePublisher{delivered: 1}

	svc := NewService(users, nil, pub, &fakeStore{})
	err := svc.Run(context.Background(), []targets.Target{
		{ID: "ghost", Login: "ghost"},
		{ID: "octocat", Login: "octocat"},
	})
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected error mentioning ghost, got %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].TargetID != "octocat" {
		t.Fatalf("remaining targets must still be processed, got %+v", pub.events)
	}
}

func TestServiceRunCancelsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	users := &fakeUsers{users: map[string]map[string]any{"octocat": octocat()}}
	svc := NewService(users, nil, &fakePublisher{delivered: 1}, nil)
	errs := svc.runAll(ctx, []targets.Target{{ID: "octocat", Login: "octocat"}})
	if len(errs) != 0 || len(users.calls) != 0 {
		t.Fatalf("expected no work on cancelled context, errs=%v calls=%v", errs, users.calls)
	}
}

func TestServiceRunRejectsEmptyTargets(t *testing.T) {
	svc := NewService(&fakeUsers{}, nil, nil, nil)
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when targets list empty")
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		t.Fatalf("sleep must return false on cancelled context")
	}
	if !sleep(context.Background(), 0) {
		t.Fatalf("zero delay must not block")
	}
}
