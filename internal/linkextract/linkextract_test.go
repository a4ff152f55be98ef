// internal/linkextract/linkextract_test.go
package linkextract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
)

const listHTML = `
<div class="list">
	<div class="item">
		<a class="link" href="/bai-viet/mot">Bài một</a>
		<img class="thumb" src="" data-src="/thumb1.jpg">
		<h3 class="headline">Tiêu đề một</h3>
	</div>
	<div class="item">
		<a class="link" href="/bai-viet/hai">Bài hai</a>
	</div>
	<div class="item">
		<a class="link" href="/tag/khuyen-mai">Tag page</a>
	</div>
	<div class="item">
		<a class="link" href="/bai-viet/mot#comment">Bài một lại</a>
	</div>
	<div class="item">
		<a class="link" href="javascript:void(0)">JS</a>
	</div>
	<div class="item">
		<a class="link" href="mailto:x@example.com">Mail</a>
	</div>
	<div class="item">
		<a class="link" href="#top">Anchor</a>
	</div>
</div>`

func newExtractor() *Extractor {
	return New(fetcher.New(), nil)
}

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(listHTML))
	}))
	defer server.Close()

	links, err := newExtractor().Extract(context.Background(), Options{
		URL:           server.URL + "/tin-tuc",
		ItemSelector:  ".item",
		LinkSelector:  "a.link",
		ImageSelector: ".thumb",
		TitleSelector: ".headline",
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	// javascript:, mailto: and #top are skipped; "/bai-viet/mot" and
	// its #comment twin dedupe to one entry.
	if len(links) != 3 {
		t.Fatalf("got %d links, want 3: %+v", len(links), links)
	}

	first := links[0]
	if first.URL != server.URL+"/bai-viet/mot" {
		t.Errorf("first URL = %q", first.URL)
	}
	if first.Title != "Tiêu đề một" {
		t.Errorf("title selector not applied, title = %q", first.Title)
	}
	if first.Image != server.URL+"/thumb1.jpg" {
		t.Errorf("lazy thumbnail not resolved, image = %q", first.Image)
	}

	// Anchor text is the fallback title.
	if links[1].Title != "Bài hai" {
		t.Errorf("second title = %q", links[1].Title)
	}
}

func TestExtractFilterAndExclude(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(listHTML))
	}))
	defer server.Close()

	links, err := newExtractor().Extract(context.Background(), Options{
		URL:            server.URL,
		LinkSelector:   "a.link",
		FilterPattern:  "/bai-viet/",
		ExcludePattern: "/hai$",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(links) != 1 {
		t.Fatalf("got %d links, want 1: %+v", len(links), links)
	}
	if links[0].URL != server.URL+"/bai-viet/mot" {
		t.Errorf("link = %q", links[0].URL)
	}
}

func TestExtractLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, `<a class="link" href="/p/%d">Post %d</a>`, i, i)
		}
	}))
	defer server.Close()

	links, err := newExtractor().Extract(context.Background(), Options{
		URL:          server.URL,
		LinkSelector: "a.link",
		Limit:        4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 4 {
		t.Errorf("got %d links, want 4", len(links))
	}
}

func TestExtractPagination(t *testing.T) {
	var pagesServed []string
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		pagesServed = append(pagesServed, page)
		if page == "3" {
			// Past the last real page: no new links.
			w.Write([]byte(`<div></div>`))
			return
		}
		fmt.Fprintf(w, `<a class="link" href="/p/%s-a">A</a><a class="link" href="/p/%s-b">B</a>`, page, page)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	links, err := newExtractor().Extract(context.Background(), Options{
		URL:          server.URL + "/list",
		LinkSelector: "a.link",
		MaxPages:     5,
		PageTemplate: server.URL + "/list?page={page}",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(links) != 4 {
		t.Errorf("got %d links, want 4 across two pages", len(links))
	}
	// Page 3 yields nothing new, so page 4 is never fetched.
	if len(pagesServed) != 3 {
		t.Errorf("pages served = %v, want exactly 3", pagesServed)
	}
}

func TestExtractLaterPageFailureIsBestEffort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte(`<a class="link" href="/p/1">One</a>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	links, err := newExtractor().Extract(context.Background(), Options{
		URL:          server.URL + "/list",
		LinkSelector: "a.link",
		MaxPages:     3,
		PageTemplate: server.URL + "/list?page={page}",
	})
	if err != nil {
		t.Fatalf("a failing later page must not fail the extraction: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("got %d links, want 1", len(links))
	}
}

func TestExtractFirstPageFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newExtractor().Extract(context.Background(), Options{
		URL:          server.URL,
		LinkSelector: "a.link",
	})
	if err == nil {
		t.Fatal("expected an error when the first page fails")
	}
}

func TestExtractConfigErrors(t *testing.T) {
	e := newExtractor()
	ctx := context.Background()

	tests := []struct {
		name string
		opts Options
	}{
		{"missing url", Options{LinkSelector: "a"}},
		{"missing link selector", Options{URL: "https://example.com"}},
		{"bad link selector", Options{URL: "https://example.com", LinkSelector: "[[["}},
		{"bad item selector", Options{URL: "https://example.com", LinkSelector: "a", ItemSelector: "[[["}},
		{"bad filter regex", Options{URL: "https://example.com", LinkSelector: "a", FilterPattern: "["}},
		{"bad exclude regex", Options{URL: "https://example.com", LinkSelector: "a", ExcludePattern: "("}},
		{"pagination without placeholder", Options{URL: "https://example.com", LinkSelector: "a", MaxPages: 3, PageTemplate: "https://example.com/list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Extract(ctx, tt.opts); err == nil {
				t.Error("expected a configuration error before any fetch")
			}
		})
	}
}
