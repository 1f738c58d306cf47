// Package targets loads the list of GitHub users the watcher polls.
package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultRequestDelayMs = 500

// Target is one watched GitHub account. Self targets watch the owner of the
// configured token through GET /user and must not name a login.
type Target struct {
	ID             string `json:"id" yaml:"id"`
	Login          string `json:"login" yaml:"login"`
	Self           bool   `json:"self" yaml:"self"`
	ScrapeBlog     bool   `json:"scrape_blog" yaml:"scrape_blog"`
	RequestDelayMs int    `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type file struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Registry is the validated, immutable set of targets loaded from a file.
type Registry struct {
	targets []Target
	idx     map[string]Target
}

// LoadRegistry reads a YAML or JSON targets file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	parsed, err := parseFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Targets)
}

// NewRegistry sanitizes and validates targets; ids must be unique.
func NewRegistry(list []Target) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	reg := &Registry{
		targets: make([]Target, 0, len(list)),
		idx:     make(map[string]Target, len(list)),
	}
	for i, t := range list {
		t = sanitize(t)
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := reg.idx[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		reg.targets = append(reg.targets, t)
		reg.idx[t.ID] = t
	}
	return reg, nil
}

func parseFile(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out file
		if err := d.fn(data, &out); err == nil {
			return out, nil
		}
	}
	return file{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

func sanitize(t Target) Target {
	t.ID = strings.TrimSpace(t.ID)
	t.Login = strings.TrimSpace(t.Login)
	if t.ID == "" {
		if t.Self {
			t.ID = "self"
		} else {
			t.ID = strings.ToLower(t.Login)
		}
	}
	if t.RequestDelayMs <= 0 {
		t.RequestDelayMs = defaultRequestDelayMs
	}
	return t
}

func validate(t Target) error {
	if t.ID == "" {
		return errors.New("id or login is required")
	}
	if t.Self && t.Login != "" {
		return fmt.Errorf("target %q: self targets must not set login", t.ID)
	}
	if !t.Self && t.Login == "" {
		return fmt.Errorf("target %q: login is required", t.ID)
	}
	return nil
}

// All returns a copy of the targets in file order.
func (r *Registry) All() []Target {
	if r == nil {
		return nil
	}
	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

func (r *Registry) ByID(id string) (Target, bool) {
	if r == nil {
		return Target{}, false
	}
	t, ok := r.idx[strings.TrimSpace(id)]
	return t, ok
}

// RequestDelay is the pause after polling this target.
func (t Target) RequestDelay() time.Duration {
	if t.RequestDelayMs <= 0 {
		return defaultRequestDelayMs * time.Millisecond
	}
	return time.Duration(t.RequestDelayMs) * time.Millisecond
}
