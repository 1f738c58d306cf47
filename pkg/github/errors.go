package github

import (
	"errors"
	"fmt"
)

var (
	// ErrClient is matched by every error returned from this package.
	ErrClient = errors.New("github client error")

	ErrTransport         = errors.New("github transport error")
	ErrUnsupportedStatus = errors.New("github unsupported response status")
)

// TransportError means the HTTP exchange itself failed: either no response
// was received (StatusCode 0, Err set) or the server answered 4xx/5xx.
type TransportError struct {
	URL        string
	StatusCode int
	Reason     string
	Message    string // "message" member of a GitHub error body, if any
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("GET %s: %d %s: %s", e.URL, e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrClient || target == ErrTransport
}

// UnsupportedStatusError means the transport succeeded but the endpoint
// does not know how to interpret the status it got back (a redirect, 204...).
type UnsupportedStatusError struct {
	URL        string
	StatusCode int
}

func (e *UnsupportedStatusError) Error() string {
	return fmt.Sprintf("GET %s: unsupported response status %d", e.URL, e.StatusCode)
}

func (e *UnsupportedStatusError) Is(target error) bool {
	return target == ErrClient || target == ErrUnsupportedStatus
}

// clientError tags any other failure of this package (bad config, undecodable
// body) with ErrClient while keeping its cause.
type clientError struct {
	msg string
	err error
}

func (e *clientError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *clientError) Unwrap() []error {
	if e.err == nil {
		return []error{ErrClient}
	}
	return []error{ErrClient, e.err}
}

func wrapErr(err error, format string, args ...any) error {
	return &clientError{msg: fmt.Sprintf(format, args...), err: err}
}
