package publishers

import (
	"encoding/json"
	"time"

	"github.com/wankata/github-api-client/internal/domain"
)

// Event is the payload published when a watched profile changed.
type Event struct {
	TargetID    string           `json:"target_id"`
	Login       string           `json:"login"`
	Kind        string           `json:"kind"`
	Digest      string           `json:"digest"`
	User        json.RawMessage  `json:"user"`
	Blog        *domain.BlogMeta `json:"blog,omitempty"`
	CollectedAt time.Time        `json:"collected_at"`
}

// NewEvent stamps a snapshot with the collection time.
func NewEvent(snap domain.Snapshot) Event {
	return Event{
		TargetID:    snap.TargetID,
		Login:       snap.Login,
		Kind:        snap.Kind,
		Digest:      snap.Digest,
		User:        snap.User,
		Blog:        snap.Blog,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing keys copied onto queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"target_id": e.TargetID,
		"login":     e.Login,
		"kind":      e.Kind,
	}
}
