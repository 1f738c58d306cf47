// Package domain holds the types passed between the watcher, store and publishers.
package domain

import "encoding/json"

// Snapshot kinds.
const (
	KindUser              = "user"
	KindAuthenticatedUser = "authenticated_user"
)

// BlogMeta is page metadata scraped from a user's blog URL.
type BlogMeta struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Snapshot is one observed state of a watched account.
type Snapshot struct {
	TargetID string          `json:"target_id"`
	Login    string          `json:"login"`
	Kind     string          `json:"kind"`
	Digest   string          `json:"digest"`
	User     json.RawMessage `json:"user"`
	Blog     *BlogMeta       `json:"blog,omitempty"`
}
