// Package httpretry provides an http.RoundTripper that retries requests failing
// with transient network errors, using exponential backoff.
package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second

	// DefaultAttemptTimeout bounds the wait for response headers of a single attempt.
	DefaultAttemptTimeout = 30 * time.Second
)

// Transport retries a request when the underlying round trip fails with a
// transient network or stream error. Responses, whatever their status code,
// are returned to the caller untouched. Once retries are exhausted the last
// error is returned.
type Transport struct {
	base       http.RoundTripper
	maxRetries uint64
	baseDelay  time.Duration
}

// Compile-time interface satisfaction check.
var _ http.RoundTripper = (*Transport)(nil)

// Option configures Transport behavior.
type Option func(*Transport)

// WithMaxRetries sets how many times a failed attempt is retried.
func WithMaxRetries(n uint64) Option {
	return func(t *Transport) {
		t.maxRetries = n
	}
}

// WithBaseDelay sets the wait before the first retry. Each further retry
// doubles it.
func WithBaseDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.baseDelay = d
	}
}

// New wraps base (http.DefaultTransport when nil) with retry semantics.
func New(base http.RoundTripper, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{
		base:       base,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BoundedTransport returns a clone of http.DefaultTransport whose attempts
// give up after d without response headers. The resulting timeout error is
// transient, so a wrapping Transport retries it like a dropped connection.
func BoundedTransport(d time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = d
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp    *http.Response
		attempt int
	)

	operation := func() error {
		attempt++

		r, err := rewind(req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err = t.base.RoundTrip(r)
		if err == nil {
			return nil
		}
		if req.Context().Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("transient http error, retrying",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, t.newBackOff(req.Context()), notify); err != nil {
		return nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", req.Method, req.URL.Redacted(), attempt, err)
	}

	return resp, nil
}

// newBackOff returns a deterministic doubling schedule capped at maxRetries.
func (t *Transport) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.baseDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = t.baseDelay << 10
	eb.MaxElapsedTime = 0
	eb.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(eb, t.maxRetries), ctx)
}

// rewind returns the request to send for the given attempt. The first attempt
// uses req as is; later attempts need a fresh body from GetBody.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}

	r := req.Clone(req.Context())
	r.Body = body
	return r, nil
}

// IsTransient reports whether err is a network-layer failure worth retrying:
// timeouts, reset or refused connections, truncated streams and HTTP/2 stream
// resets. Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "http2: server sent GOAWAY") ||
		strings.Contains(msg, "stream error") ||
		strings.Contains(msg, "connection reset by peer")
}
