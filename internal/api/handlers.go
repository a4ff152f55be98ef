// internal/api/handlers.go
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/mux"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/extract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/jobs"
	"github.com/jonathanvirgo/site-blog-sub002/internal/linkextract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/sanitize"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
)

type batchRequest struct {
	Source     string   `json:"source"`
	URLs       []string `json:"urls"`
	CategoryID string   `json:"category_id"`
	Status     string   `json:"status"`
}

// handleBatch runs a synchronous batch import. The response is always
// 200 with per-URL accounting once the run starts; only malformed or
// misconfigured requests are rejected.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	source, ok := s.profiles[req.Source]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown source "+req.Source)
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if req.Status == "" {
		req.Status = "draft"
	}

	result, err := s.orchestrator.Run(r.Context(), req.URLs, batch.Options{
		Source:     source,
		CategoryID: req.CategoryID,
		Status:     req.Status,
	})
	if err != nil {
		if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type testRequest struct {
	URL            string            `json:"url"`
	Selectors      map[string]string `json:"selectors"`
	RemoveElements []string          `json:"remove_elements"`
	Headers        map[string]string `json:"headers"`
}

type testResponse struct {
	URL     string              `json:"url"`
	Results map[string][]string `json:"results"`
}

// handleTest fetches one page and reports every match of every
// submitted selector. Selector tuning mode: no slugging, no storage.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if len(req.Selectors) == 0 {
		writeError(w, http.StatusBadRequest, "selectors is required")
		return
	}

	normalized, err := urlutil.Normalize(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	html, err := s.fetcher.Fetch(r.Context(), normalized, req.Headers)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to parse page: "+err.Error())
		return
	}
	sanitize.Clean(doc, req.RemoveElements)
	sanitize.ResolveLazyImages(doc)

	writeJSON(w, http.StatusOK, testResponse{
		URL:     normalized,
		Results: extract.TestSelectors(doc, req.Selectors, normalized),
	})
}

type linksRequest struct {
	URL            string            `json:"url"`
	ItemSelector   string            `json:"item_selector"`
	LinkSelector   string            `json:"link_selector"`
	ImageSelector  string            `json:"image_selector"`
	TitleSelector  string            `json:"title_selector"`
	FilterPattern  string            `json:"filter_pattern"`
	ExcludePattern string            `json:"exclude_pattern"`
	Limit          int               `json:"limit"`
	MaxPages       int               `json:"max_pages"`
	PageTemplate   string            `json:"page_template"`
	Headers        map[string]string `json:"headers"`
}

type linksResponse struct {
	Links []linkextract.Link `json:"links"`
	Count int                `json:"count"`
}

// handleLinks extracts candidate detail-page links from a listing
// page.
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	var req linksRequest
	if !decodeBody(w, r, &req) {
		return
	}

	links, err := s.links.Extract(r.Context(), linkextract.Options{
		URL:            req.URL,
		ItemSelector:   req.ItemSelector,
		LinkSelector:   req.LinkSelector,
		ImageSelector:  req.ImageSelector,
		TitleSelector:  req.TitleSelector,
		FilterPattern:  req.FilterPattern,
		ExcludePattern: req.ExcludePattern,
		Limit:          req.Limit,
		MaxPages:       req.MaxPages,
		PageTemplate:   req.PageTemplate,
		Headers:        req.Headers,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, linksResponse{Links: links, Count: len(links)})
}

type submitJobsRequest struct {
	Source     string   `json:"source"`
	URLs       []string `json:"urls"`
	CategoryID string   `json:"category_id"`
}

type submitJobsResponse struct {
	Results []jobs.SubmitResult `json:"results"`
}

// handleSubmitJobs queues crawl jobs. Individual URL rejections (bad
// URL, already active) are reported per entry, not as request
// failures.
func (s *Server) handleSubmitJobs(w http.ResponseWriter, r *http.Request) {
	var req submitJobsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	results, err := s.jobs.Submit(r.Context(), req.Source, req.URLs, req.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, submitJobsResponse{Results: results})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.jobs.Delete(r.Context(), id)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "job "+id+" not found")
	case errors.Is(err, jobs.ErrJobProcessing):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleApproveJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := s.jobs.Approve(r.Context(), id)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		writeError(w, http.StatusNotFound, "job "+id+" not found")
	case errors.Is(err, jobs.ErrNotReviewable):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, job)
	}
}
