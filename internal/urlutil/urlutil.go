// internal/urlutil/urlutil.go

// Package urlutil provides URL canonicalization and resolution helpers
// shared by the extraction engine, the link extractor and the
// duplicate check.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for duplicate detection: scheme and
// host are lowercased, default ports are dropped, the fragment is
// stripped and a trailing slash is trimmed from non-root paths. The
// same normalization must be applied to stored source URLs and to
// candidate URLs, otherwise the duplicate check is not sound.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Resolve makes ref absolute against the scheme and host of the page
// that was actually fetched. Protocol-relative refs ("//cdn/x.jpg")
// receive an assumed https scheme. A <base> tag in the document is
// deliberately ignored.
func Resolve(baseURL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", baseURL)
	}

	return base.ResolveReference(r).String(), nil
}

// Origin returns scheme://host of an absolute URL.
func Origin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// IsDataURI reports whether a src attribute holds an inline data URI
// placeholder rather than a fetchable URL.
func IsDataURI(src string) bool {
	return strings.HasPrefix(strings.TrimSpace(src), "data:")
}
