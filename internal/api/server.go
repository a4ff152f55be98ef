// internal/api/server.go

// Package api exposes the crawl pipeline over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/jobs"
	"github.com/jonathanvirgo/site-blog-sub002/internal/linkextract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// Server routes HTTP requests to the pipeline components.
type Server struct {
	router       *mux.Router
	orchestrator *batch.Orchestrator
	links        *linkextract.Extractor
	jobs         *jobs.Manager
	fetcher      *fetcher.Fetcher
	profiles     map[string]*config.SourceConfig
	logger       utils.Logger
}

// Deps carries the collaborators the server needs. Registry may be
// nil, which disables the /metrics endpoint.
type Deps struct {
	Orchestrator *batch.Orchestrator
	Links        *linkextract.Extractor
	Jobs         *jobs.Manager
	Fetcher      *fetcher.Fetcher
	Profiles     map[string]*config.SourceConfig
	Registry     *prometheus.Registry
	Logger       utils.Logger
}

// NewServer builds the router and wires the handlers.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = utils.NopLogger{}
	}
	profiles := deps.Profiles
	if profiles == nil {
		profiles = map[string]*config.SourceConfig{}
	}

	s := &Server{
		router:       mux.NewRouter(),
		orchestrator: deps.Orchestrator,
		links:        deps.Links,
		jobs:         deps.Jobs,
		fetcher:      deps.Fetcher,
		profiles:     profiles,
		logger:       logger,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if deps.Registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/crawl/batch", s.handleBatch).Methods("POST")
	api.HandleFunc("/crawl/test", s.handleTest).Methods("POST")
	api.HandleFunc("/crawl/links", s.handleLinks).Methods("POST")
	api.HandleFunc("/jobs", s.handleSubmitJobs).Methods("POST")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleDeleteJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/approve", s.handleApproveJob).Methods("POST")

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes a JSON request body, reporting malformed input as
// a client error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
