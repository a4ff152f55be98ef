// internal/batch/batch_test.go
package batch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
)

func articleSource() *config.SourceConfig {
	return &config.SourceConfig{
		Name: "test-source",
		Type: config.TypeArticle,
		Article: config.ArticleSelectors{
			Title:   "h1",
			Content: ".content",
		},
	}
}

func pageHTML(title string) string {
	return fmt.Sprintf(`<h1>%s</h1><div class="content"><p>body of %s</p></div>`, title, title)
}

// newTestServer serves a distinct article per path and a 404 for
// /missing.
func newTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, "not found", http.StatusNotFound)
		case "/untitled":
			w.Write([]byte(`<div class="content"><p>no heading</p></div>`))
		default:
			w.Write([]byte(pageHTML("Article " + r.URL.Path)))
		}
	}))
}

func TestRunPartialFailure(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	store := catalog.NewMemoryStore()
	o := New(fetcher.New(), store, nil, nil)

	urls := []string{
		server.URL + "/one",
		server.URL + "/missing",
		server.URL + "/two",
	}

	result, err := o.Run(context.Background(), urls, Options{Source: articleSource(), Status: "draft"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(result.Items))
	}

	// Input order is preserved and the failure does not stop the rest.
	wantOutcomes := []Outcome{OutcomeSuccess, OutcomeFailed, OutcomeSuccess}
	for i, want := range wantOutcomes {
		if result.Items[i].Outcome != want {
			t.Errorf("item %d outcome = %s, want %s", i, result.Items[i].Outcome, want)
		}
	}
	if result.Success != 2 || result.Failed != 1 {
		t.Errorf("counts: %d success %d failed", result.Success, result.Failed)
	}
	if result.Items[1].Error == "" {
		t.Error("failed item should carry the error text")
	}
	if store.Len() != 2 {
		t.Errorf("store has %d records, want 2", store.Len())
	}
}

func TestRunDuplicateAcrossRuns(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	store := catalog.NewMemoryStore()
	o := New(fetcher.New(), store, nil, nil)
	opts := Options{Source: articleSource(), Status: "draft"}
	url := server.URL + "/one"

	first, err := o.Run(context.Background(), []string{url}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Items[0].Outcome != OutcomeSuccess {
		t.Fatalf("first run outcome = %s", first.Items[0].Outcome)
	}

	second, err := o.Run(context.Background(), []string{url}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.Items[0].Outcome != OutcomeDuplicate {
		t.Errorf("second run outcome = %s, want duplicate", second.Items[0].Outcome)
	}
	if second.Items[0].RecordID != first.Items[0].RecordID {
		t.Errorf("duplicate should reference the existing record")
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want 1", store.Len())
	}
}

func TestRunDuplicateByNormalizedURL(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	store := catalog.NewMemoryStore()
	o := New(fetcher.New(), store, nil, nil)
	opts := Options{Source: articleSource()}

	if _, err := o.Run(context.Background(), []string{server.URL + "/one"}, opts); err != nil {
		t.Fatal(err)
	}

	// Trailing slash and fragment variants normalize to the same URL.
	result, err := o.Run(context.Background(), []string{server.URL + "/one/#section"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.Items[0].Outcome != OutcomeDuplicate {
		t.Errorf("outcome = %s, want duplicate", result.Items[0].Outcome)
	}
}

func TestRunSlugConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(pageHTML("Same Title")))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(pageHTML("Same Title")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := catalog.NewMemoryStore()
	o := New(fetcher.New(), store, nil, nil)

	result, err := o.Run(context.Background(), []string{server.URL + "/a", server.URL + "/b"}, Options{Source: articleSource()})
	if err != nil {
		t.Fatal(err)
	}

	if result.Items[0].Outcome != OutcomeSuccess {
		t.Errorf("first outcome = %s", result.Items[0].Outcome)
	}
	if result.Items[1].Outcome != OutcomeSlugConflict {
		t.Errorf("second outcome = %s, want slug_conflict", result.Items[1].Outcome)
	}
	// Reject mode: the conflicting slug is reported but nothing is
	// stored for it.
	if result.Items[1].Slug != "same-title" {
		t.Errorf("conflicting slug = %q", result.Items[1].Slug)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want 1", store.Len())
	}
}

func TestRunMissingTitle(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	store := catalog.NewMemoryStore()
	o := New(fetcher.New(), store, nil, nil)

	result, err := o.Run(context.Background(), []string{server.URL + "/untitled"}, Options{Source: articleSource()})
	if err != nil {
		t.Fatal(err)
	}
	if result.Items[0].Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", result.Items[0].Outcome)
	}
	if store.Len() != 0 {
		t.Error("no record may be created without a title")
	}
}

func TestRunSkipsBlankURLs(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	o := New(fetcher.New(), catalog.NewMemoryStore(), nil, nil)

	result, err := o.Run(context.Background(), []string{"", "   ", server.URL + "/one"}, Options{Source: articleSource()})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Items) != 1 {
		t.Errorf("got %d items, want 1 (blank entries skipped)", len(result.Items))
	}
}

func TestRunRejectsOversizedBatch(t *testing.T) {
	o := New(fetcher.New(), catalog.NewMemoryStore(), nil, nil)

	urls := make([]string, MaxURLs+1)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
	}

	if _, err := o.Run(context.Background(), urls, Options{Source: articleSource()}); err == nil {
		t.Fatal("expected an error for an oversized batch")
	}
}

func TestRunRejectsBadProfileBeforeFetch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte(pageHTML("x")))
	}))
	defer server.Close()

	o := New(fetcher.New(), catalog.NewMemoryStore(), nil, nil)

	source := articleSource()
	source.Article.Title = ""

	if _, err := o.Run(context.Background(), []string{server.URL + "/one"}, Options{Source: source}); err == nil {
		t.Fatal("expected a configuration error")
	}
	if requests != 0 {
		t.Errorf("configuration errors must abort before any fetch, saw %d requests", requests)
	}
}

func TestRunContextCancellation(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	o := New(fetcher.New(), catalog.NewMemoryStore(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx, []string{server.URL + "/one"}, Options{Source: articleSource()})
	if err == nil {
		t.Fatal("expected the context error")
	}
	if len(result.Items) != 0 {
		t.Errorf("cancelled run processed %d items", len(result.Items))
	}
}

func TestRunInvalidURL(t *testing.T) {
	o := New(fetcher.New(), catalog.NewMemoryStore(), nil, nil)

	result, err := o.Run(context.Background(), []string{"not a url"}, Options{Source: articleSource()})
	if err != nil {
		t.Fatal(err)
	}
	if result.Items[0].Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want failed", result.Items[0].Outcome)
	}
}
