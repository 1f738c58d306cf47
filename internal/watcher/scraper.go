package watcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/wankata/github-api-client/internal/domain"
	"github.com/wankata/github-api-client/pkg/httpclient"
)

const (
	maxHTMLBodyBytes     = 1 << 20 // 1 MiB
	defaultScrapeTimeout = 10 * time.Second
)

// Scraper fetches blog pages and extracts metadata from OG tags.
type Scraper struct {
	client  httpclient.Client
	headers map[string]string
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, userAgent string) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultScrapeTimeout, httpclient.WithUserAgent(userAgent))
	}
	return &Scraper{client: client, headers: map[string]string{"Accept": "text/html,application/xhtml+xml"}}
}

// Scrape fetches blogURL and returns its page metadata.
func (s *Scraper) Scrape(ctx context.Context, blogURL string) (*domain.BlogMeta, error) {
	pageURL, err := normalizeBlogURL(blogURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, pageURL, s.headers)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return nil, err
	}

	return &domain.BlogMeta{
		URL:         pageURL,
		Title:       meta.Title,
		Description: meta.Description,
		ImageURL:    resolveURL(meta.ImageURL, pageURL),
	}, nil
}

// normalizeBlogURL accepts the free-form blog field ("example.com/me") and
// returns an absolute http(s) URL.
func normalizeBlogURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("blog url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse blog url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("unsupported blog url %q", raw)
	}
	return u.String(), nil
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = extract(`meta[property="og:image"]`)

	return pm, nil
}

func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
