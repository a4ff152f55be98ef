// internal/fetcher/fetcher.go

// Package fetcher issues the outbound HTTP GETs for the crawl
// pipeline. It is stateless and safe for concurrent use; retries and
// politeness throttling are the orchestrator's concern, not this
// package's.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxTimeout is the hard upper bound on a single fetch. Callers may
// configure a shorter timeout but never a longer one.
const MaxTimeout = 30 * time.Second

const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "vi-VN,vi;q=0.9,en-US;q=0.8,en;q=0.7"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
}

// Fetcher performs HTTP GET requests with browser-like headers.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher with the default 30-second timeout.
func New() *Fetcher {
	return NewWithTimeout(MaxTimeout)
}

// NewWithTimeout creates a fetcher with a custom timeout, capped at
// MaxTimeout.
func NewWithTimeout(timeout time.Duration) *Fetcher {
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch issues a GET for the target URL and returns the response body
// as text. A default browser user-agent and Vietnamese-preferring
// Accept-Language are applied when the caller's headers do not supply
// them. Any non-2xx status fails with *HTTPError; there are no
// retries.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", targetURL, err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", defaultAccept)
	req.Header.Set("Accept-Language", defaultAcceptLanguage)

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        targetURL,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", targetURL, err)
	}

	return string(body), nil
}
