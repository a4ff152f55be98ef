// internal/api/api_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/jobs"
	"github.com/jonathanvirgo/site-blog-sub002/internal/linkextract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/monitoring"
)

// newTestAPI wires the whole stack on in-memory stores and returns
// the API test server plus the catalog store for assertions.
func newTestAPI(t *testing.T) (*httptest.Server, *catalog.MemoryStore) {
	t.Helper()

	profiles := map[string]*config.SourceConfig{
		"news": {
			Name: "news",
			Type: config.TypeArticle,
			Article: config.ArticleSelectors{
				Title:   "h1",
				Content: ".content",
			},
		},
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	f := fetcher.New()
	catStore := catalog.NewMemoryStore()
	orchestrator := batch.New(f, catStore, metrics, nil)
	manager := jobs.NewManager(jobs.NewMemoryStore(), catStore, orchestrator, profiles, metrics, nil)

	server := httptest.NewServer(NewServer(Deps{
		Orchestrator: orchestrator,
		Links:        linkextract.New(f, nil),
		Jobs:         manager,
		Fetcher:      f,
		Profiles:     profiles,
		Registry:     registry,
	}))
	t.Cleanup(server.Close)
	return server, catStore
}

// newUpstream simulates the site being crawled.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `<h1>Article %s</h1><div class="content"><p>body</p><a class="more" href="/next">next</a></div>`, r.URL.Path)
	}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestBatchEndpoint(t *testing.T) {
	api, catStore := newTestAPI(t)
	upstream := newUpstream(t)

	resp := postJSON(t, api.URL+"/api/crawl/batch", map[string]interface{}{
		"source": "news",
		"urls":   []string{upstream.URL + "/mot", upstream.URL + "/missing"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with per-URL failures", resp.StatusCode)
	}

	var result batch.Result
	decode(t, resp, &result)

	if result.Success != 1 || result.Failed != 1 {
		t.Errorf("counts: %+v", result)
	}
	if catStore.Len() != 1 {
		t.Errorf("catalog has %d records", catStore.Len())
	}
}

func TestBatchEndpointUnknownSource(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/crawl/batch", map[string]interface{}{
		"source": "nope",
		"urls":   []string{"https://example.com/a"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestBatchEndpointMalformedJSON(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Post(api.URL+"/api/crawl/batch", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTestEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)
	upstream := newUpstream(t)

	resp := postJSON(t, api.URL+"/api/crawl/test", map[string]interface{}{
		"url": upstream.URL + "/mot",
		"selectors": map[string]string{
			"heading": "h1",
			"missing": ".nope",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Results map[string][]string `json:"results"`
	}
	decode(t, resp, &body)

	if got := body.Results["heading"]; len(got) != 1 || got[0] != "Article /mot" {
		t.Errorf("heading matches = %v", got)
	}
	if got := body.Results["missing"]; len(got) != 0 {
		t.Errorf("missing selector matches = %v", got)
	}
}

func TestLinksEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)
	upstream := newUpstream(t)

	resp := postJSON(t, api.URL+"/api/crawl/links", map[string]interface{}{
		"url":           upstream.URL + "/list",
		"link_selector": "a.more",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Links []linkextract.Link `json:"links"`
		Count int                `json:"count"`
	}
	decode(t, resp, &body)

	if body.Count != 1 || len(body.Links) != 1 {
		t.Fatalf("links = %+v", body)
	}
	if body.Links[0].URL != upstream.URL+"/next" {
		t.Errorf("link = %q", body.Links[0].URL)
	}
}

func TestLinksEndpointBadSelector(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/crawl/links", map[string]interface{}{
		"url":           "https://example.com",
		"link_selector": "[[[",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	api, _ := newTestAPI(t)
	upstream := newUpstream(t)

	resp := postJSON(t, api.URL+"/api/jobs", map[string]interface{}{
		"source": "news",
		"urls":   []string{upstream.URL + "/mot"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d, want 201", resp.StatusCode)
	}

	var submitted struct {
		Results []jobs.SubmitResult `json:"results"`
	}
	decode(t, resp, &submitted)

	if len(submitted.Results) != 1 || submitted.Results[0].Job == nil {
		t.Fatalf("submit results = %+v", submitted.Results)
	}
	id := submitted.Results[0].Job.ID

	getResp, err := http.Get(api.URL + "/api/jobs/" + id)
	if err != nil {
		t.Fatal(err)
	}
	var job jobs.Job
	decode(t, getResp, &job)
	if job.State != jobs.StateQueued {
		t.Errorf("job state = %s, want queued", job.State)
	}

	req, err := http.NewRequest(http.MethodDelete, api.URL+"/api/jobs/"+id, nil)
	if err != nil {
		t.Fatal(err)
	}
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", delResp.StatusCode)
	}

	gone, err := http.Get(api.URL + "/api/jobs/" + id)
	if err != nil {
		t.Fatal(err)
	}
	gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", gone.StatusCode)
	}
}

func TestApproveEndpointWrongState(t *testing.T) {
	api, _ := newTestAPI(t)
	upstream := newUpstream(t)

	resp := postJSON(t, api.URL+"/api/jobs", map[string]interface{}{
		"source": "news",
		"urls":   []string{upstream.URL + "/mot"},
	})
	var submitted struct {
		Results []jobs.SubmitResult `json:"results"`
	}
	decode(t, resp, &submitted)
	id := submitted.Results[0].Job.ID

	approve := postJSON(t, api.URL+"/api/jobs/"+id+"/approve", map[string]string{})
	defer approve.Body.Close()

	if approve.StatusCode != http.StatusConflict {
		t.Errorf("approve status = %d, want 409", approve.StatusCode)
	}
}

func TestGetJobNotFound(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/api/jobs/doesnotexist")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
