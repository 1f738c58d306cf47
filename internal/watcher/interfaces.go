package watcher

import (
	"context"

	"github.com/wankata/github-api-client/internal/domain"
	"github.com/wankata/github-api-client/pkg/github"
	"github.com/wankata/github-api-client/pkg/publishers"
)

// UserFetcher retrieves user records from the API.
type UserFetcher interface {
	AuthenticatedUser(ctx context.Context) (*github.AuthenticatedUser, error)
	User(ctx context.Context, login string) (*github.User, error)
}

// BlogScraper extracts page metadata from a user's blog URL.
type BlogScraper interface {
	Scrape(ctx context.Context, blogURL string) (*domain.BlogMeta, error)
}

// EventPublisher publishes snapshot events and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// DigestStore remembers the last published digest per target.
type DigestStore interface {
	LastDigest(targetID string) (string, bool, error)
	SaveDigest(targetID, digest string) error
}
