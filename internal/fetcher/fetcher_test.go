// internal/fetcher/fetcher_test.go
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	body, err := New().Fetch(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if body != "<html><body>ok</body></html>" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchDefaultHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	if _, err := New().Fetch(context.Background(), server.URL, nil); err != nil {
		t.Fatal(err)
	}

	if ua := got.Get("User-Agent"); ua != defaultUserAgent {
		t.Errorf("User-Agent = %q", ua)
	}
	if al := got.Get("Accept-Language"); al != defaultAcceptLanguage {
		t.Errorf("Accept-Language = %q", al)
	}
	if a := got.Get("Accept"); a != defaultAccept {
		t.Errorf("Accept = %q", a)
	}
}

func TestFetchCallerHeadersOverride(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	headers := map[string]string{
		"User-Agent": "custom-agent/1.0",
		"X-Custom":   "yes",
	}
	if _, err := New().Fetch(context.Background(), server.URL, headers); err != nil {
		t.Fatal(err)
	}

	if ua := got.Get("User-Agent"); ua != "custom-agent/1.0" {
		t.Errorf("caller User-Agent not applied, got %q", ua)
	}
	if x := got.Get("X-Custom"); x != "yes" {
		t.Errorf("custom header missing, got %q", x)
	}
	if al := got.Get("Accept-Language"); al != defaultAcceptLanguage {
		t.Errorf("default Accept-Language should survive partial override, got %q", al)
	}
}

func TestFetchNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New().Fetch(context.Background(), server.URL, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", httpErr.StatusCode)
	}
}

func TestFetchContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := New().Fetch(ctx, server.URL, nil); err == nil {
		t.Fatal("expected a context error")
	}
}

func TestNewWithTimeoutCaps(t *testing.T) {
	f := NewWithTimeout(5 * time.Minute)
	if f.client.Timeout != MaxTimeout {
		t.Errorf("timeout = %v, want capped at %v", f.client.Timeout, MaxTimeout)
	}

	f = NewWithTimeout(2 * time.Second)
	if f.client.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", f.client.Timeout)
	}
}
