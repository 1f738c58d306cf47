package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store remembers the digest of the last published snapshot per target so
// unchanged profiles are not published again.
type Store interface {
	Close() error
	LastDigest(targetID string) (digest string, ok bool, err error)
	SaveDigest(targetID, digest string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	DigestTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultDigestTTL       = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.DigestTTL <= 0 {
		opts.DigestTTL = defaultDigestTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// noopStore never remembers anything, so every snapshot counts as new.
type noopStore struct{}

func (noopStore) Close() error                            { return nil }
func (noopStore) LastDigest(string) (string, bool, error) { return "", false, nil }
func (noopStore) SaveDigest(string, string) error         { return nil }
