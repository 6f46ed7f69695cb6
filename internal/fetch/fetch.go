package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"influxcal/internal/config"
	appLog "influxcal/internal/log"
)

// maxBodyBytes bounds a single payload.
const maxBodyBytes = 16 << 20

// Fetcher retrieves the raw payload of one source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TransportError reports a network or HTTP failure for one URL. Status is
// zero when no response was received.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", DisplayURL(e.URL), e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", DisplayURL(e.URL), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client fetches sources over HTTP with a per-request timeout and bounded
// retries on transient failures.
type Client struct {
	client    *http.Client
	cfg       config.HTTPConfig
	retryable map[int]bool
}

// NewClient creates a Client from the transport settings. Zero values in cfg
// are expected to have been filled by config.Normalize.
func NewClient(cfg config.HTTPConfig) *Client {
	retryable := make(map[int]bool, len(cfg.RetryStatus))
	for _, code := range cfg.RetryStatus {
		retryable[code] = true
	}
	return &Client{
		client:    newHTTPClient(cfg.Timeout),
		cfg:       cfg,
		retryable: retryable,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// Fetch returns the body of url. Network errors and the configured
// retryable status codes are retried with exponential backoff; any other
// non-2xx status fails immediately. All failures are *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, &TransportError{URL: rawURL, Err: errors.New("source URL is empty")}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.Backoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.Multiplier = 2

	attempt := 0
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.fetchOnce(ctx, rawURL)
		if err != nil {
			appLog.Debug("fetch attempt failed", "url", DisplayURL(rawURL), "attempt", attempt, "err", err)
		}
		return body, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.Retries)+1),
	)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	appLog.Debug("fetch success", "url", DisplayURL(rawURL), "bytes", len(body), "attempts", attempt)
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&TransportError{URL: rawURL, Err: err})
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/calendar, text/html;q=0.9, */*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		te := &TransportError{URL: rawURL, Status: resp.StatusCode, Err: errors.New(resp.Status)}
		if c.retryable[resp.StatusCode] {
			return nil, te
		}
		return nil, backoff.Permanent(te)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: rawURL, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}

// DisplayURL strips query string, fragment and credentials so feed tokens
// never end up in logs.
func DisplayURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "(invalid url)"
	}
	parsed.User = nil
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}
