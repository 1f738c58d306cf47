package httpclient

import "context"

// Response is a minimal HTTP response contract. The body has already been
// read in full and the connection released.
type Response interface {
	Body() []byte
	StatusCode() int
	// Status is the status line text, e.g. "302 Found".
	Status() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
