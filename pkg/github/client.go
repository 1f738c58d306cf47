// Package github is a small client for the user resources of the GitHub
// REST API. Responses are decoded into restricted records, so a payload
// carrying fields the model does not know about is rejected rather than
// silently dropped.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wankata/github-api-client/pkg/httpclient"
	"github.com/wankata/github-api-client/pkg/record"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.github.com/"
	defaultTimeout = 15 * time.Second
	// GitHub expects "token <value>" rather than "Bearer <value>".
	tokenType = "token"
)

// ErrMissingToken is returned when an authenticated request is made by a
// client that has no credential.
var ErrMissingToken = errors.New("github: auth requested but no token configured")

// Config is the read-only connection settings of a Client.
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Logger is the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the resty-backed transport.
func WithHTTPClient(h httpclient.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTokenSource overrides the static credential from Config.Token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

func WithLogger(log Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client performs GET requests against a fixed base URL.
type Client struct {
	base   *url.URL
	tokens oauth2.TokenSource
	http   httpclient.Client
	log    Logger
}

// NewClient validates cfg and builds a Client. Redirects are never followed
// so that endpoint methods can report them as unsupported statuses.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, wrapErr(err, "invalid base url %q", raw)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, wrapErr(nil, "base url %q must be absolute", raw)
	}
	// Relative endpoints resolve below the base path, not beside it.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		base: base,
		http: httpclient.NewRestyClient(timeout, httpclient.WithoutRedirects(), httpclient.WithUserAgent(cfg.UserAgent)),
		log:  noopLogger{},
	}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		c.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: tokenType})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised base endpoint.
func (c *Client) BaseURL() string { return c.base.String() }

// Get resolves endpoint against the base URL and fetches it. Network failures
// and 4xx/5xx answers are returned as *TransportError; any other response is
// handed back untouched for the caller to interpret.
func (c *Client) Get(ctx context.Context, endpoint string, auth bool) (httpclient.Response, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if auth {
		value, err := c.authorization()
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = value
	}

	resp, err := c.http.Get(ctx, target, headers)
	if err != nil {
		c.log.WarnObj("github request failed", "github_request", map[string]any{
			"url":   target,
			"error": err.Error(),
		})
		return nil, &TransportError{URL: target, Err: err}
	}

	code := resp.StatusCode()
	c.log.DebugObj("github response received", "github_request", map[string]any{
		"url":    target,
		"status": code,
		"auth":   auth,
		"bytes":  len(resp.Body()),
	})
	if code >= http.StatusBadRequest {
		return nil, &TransportError{
			URL:        target,
			StatusCode: code,
			Reason:     reasonPhrase(code, resp.Status()),
			Message:    apiMessage(resp.Body()),
		}
	}
	return resp, nil
}

// AuthenticatedUser fetches the profile of the token owner (GET /user).
func (c *Client) AuthenticatedUser(ctx context.Context) (*AuthenticatedUser, error) {
	r, err := c.getRecord(ctx, "user", AuthenticatedUserSchema, true)
	if err != nil {
		return nil, err
	}
	return &AuthenticatedUser{User: User{Record: r}}, nil
}

// User fetches the public profile of login (GET /users/{login}). The request
// is authenticated when the client has a credential and anonymous otherwise.
func (c *Client) User(ctx context.Context, login string) (*User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, wrapErr(nil, "user login is empty")
	}
	r, err := c.getRecord(ctx, "users/"+url.PathEscape(login), UserSchema, c.tokens != nil)
	if err != nil {
		return nil, err
	}
	return &User{Record: r}, nil
}

func (c *Client) getRecord(ctx context.Context, endpoint string, schema *record.Schema, auth bool) (*record.Record, error) {
	resp, err := c.Get(ctx, endpoint, auth)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		target, _ := c.resolve(endpoint)
		return nil, &UnsupportedStatusError{URL: target, StatusCode: resp.StatusCode()}
	}

	r, err := record.Decode(schema, resp.Body())
	if err != nil {
		return nil, wrapErr(err, "decode %s response", endpoint)
	}
	return r, nil
}

func (c *Client) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", wrapErr(err, "invalid endpoint %q", endpoint)
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) authorization() (string, error) {
	if c.tokens == nil {
		return "", wrapErr(ErrMissingToken, "authorize request")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", wrapErr(err, "obtain token")
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", wrapErr(ErrMissingToken, "authorize request")
	}
	return fmt.Sprintf("%s %s", tok.Type(), tok.AccessToken), nil
}

// reasonPhrase extracts "Not Found" from a status line such as "404 Not Found".
func reasonPhrase(code int, status string) string {
	reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(status), strconv.Itoa(code)))
	if reason == "" {
		reason = http.StatusText(code)
	}
	return reason
}

// apiMessage pulls the "message" member GitHub puts in error bodies.
func apiMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
