package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wankata/github-api-client/internal/domain"
	"github.com/wankata/github-api-client/internal/logger"
	"github.com/wankata/github-api-client/pkg/publishers"
	"github.com/wankata/github-api-client/pkg/record"
	"github.com/wankata/github-api-client/pkg/targets"
)

// Outcome reports what happened to a single target during a pass.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomePublished Outcome = "published"
	OutcomeDropped   Outcome = "dropped"
)

// TargetProcessor snapshots one target and publishes it when it changed.
type TargetProcessor struct {
	users     UserFetcher
	scraper   BlogScraper
	publisher EventPublisher
	store     DigestStore
}

// NewTargetProcessor wires a processor. scraper and store may be nil.
func NewTargetProcessor(users UserFetcher, scraper BlogScraper, publisher EventPublisher, store DigestStore) *TargetProcessor {
	return &TargetProcessor{
		users:     users,
		scraper:   scraper,
		publisher: publisher,
		store:     store,
	}
}

// Process fetches the target, compares its digest with the stored one and
// publishes a snapshot event on change. The digest is only saved once at
// least one publisher accepted the event.
func (p *TargetProcessor) Process(ctx context.Context, t targets.Target) (Outcome, error) {
	if p == nil || p.users == nil {
		return "", errors.New("target processor is not initialized")
	}

	snap, blogURL, err := p.snapshot(ctx, t)
	if err != nil {
		return "", err
	}

	if p.store != nil {
		last, ok, err := p.store.LastDigest(t.ID)
		if err != nil {
			return "", fmt.Errorf("lookup digest for target %s: %w", t.ID, err)
		}
		if ok && last == snap.Digest {
			return OutcomeUnchanged, nil
		}
	}

	if t.ScrapeBlog && p.scraper != nil && blogURL != "" {
		meta, err := p.scraper.Scrape(ctx, blogURL)
		if err != nil {
			logger.WarnObj("blog metadata scrape failed", "blog_error", map[string]any{
				"target_id": t.ID,
				"url":       blogURL,
				"error":     err.Error(),
			})
		} else {
			snap.Blog = meta
		}
	}

	if p.publisher == nil {
		return OutcomeDropped, nil
	}

	delivered, pubErr := p.publisher.Publish(ctx, publishers.NewEvent(snap))
	if delivered == 0 {
		if pubErr != nil {
			return OutcomeDropped, fmt.Errorf("publish target %s: %w", t.ID, pubErr)
		}
		return OutcomeDropped, nil
	}

	if p.store != nil {
		if err := p.store.SaveDigest(t.ID, snap.Digest); err != nil {
			return OutcomePublished, errors.Join(pubErr, fmt.Errorf("save digest for target %s: %w", t.ID, err))
		}
	}
	if pubErr != nil {
		return OutcomePublished, fmt.Errorf("publish target %s: %w", t.ID, pubErr)
	}
	return OutcomePublished, nil
}

func (p *TargetProcessor) snapshot(ctx context.Context, t targets.Target) (domain.Snapshot, string, error) {
	var (
		rec   *record.Record
		kind  string
		login string
	)

	if t.Self {
		u, err := p.users.AuthenticatedUser(ctx)
		if err != nil {
			return domain.Snapshot{}, "", fmt.Errorf("fetch authenticated user for target %s: %w", t.ID, err)
		}
		rec, kind, login = u.Record, domain.KindAuthenticatedUser, u.Login()
	} else {
		u, err := p.users.User(ctx, t.Login)
		if err != nil {
			return domain.Snapshot{}, "", fmt.Errorf("fetch user %s for target %s: %w", t.Login, t.ID, err)
		}
		rec, kind, login = u.Record, domain.KindUser, u.Login()
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.Snapshot{}, "", fmt.Errorf("encode user for target %s: %w", t.ID, err)
	}

	blog, _ := rec.String("blog")
	return domain.Snapshot{
		TargetID: t.ID,
		Login:    login,
		Kind:     kind,
		Digest:   digest(raw),
		User:     raw,
	}, strings.TrimSpace(blog), nil
}

func digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
