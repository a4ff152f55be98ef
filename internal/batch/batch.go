// internal/batch/batch.go

// Package batch drives the crawl pipeline over a list of URLs:
// duplicate check, fetch, sanitize, extract, slug, persist. URLs are
// processed strictly sequentially. The inter-request delay is a
// politeness contract with the remote origin, and the duplicate check
// must observe each prior write before the next URL is evaluated.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/extract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/monitoring"
	"github.com/jonathanvirgo/site-blog-sub002/internal/sanitize"
	"github.com/jonathanvirgo/site-blog-sub002/internal/slug"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// MaxURLs is the per-submission cap on batch size.
const MaxURLs = 50

// Outcome classifies one batch item.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFailed       Outcome = "failed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeSlugConflict Outcome = "slug_conflict"
)

// ItemResult is the per-URL outcome, in input order.
type ItemResult struct {
	URL      string  `json:"url"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
	RecordID int64   `json:"record_id,omitempty"`
	Slug     string  `json:"slug,omitempty"`
	Title    string  `json:"title,omitempty"`
}

// Result aggregates a whole batch run. It is ephemeral and never
// persisted.
type Result struct {
	Items        []ItemResult `json:"items"`
	Success      int          `json:"success"`
	Failed       int          `json:"failed"`
	Duplicates   int          `json:"duplicates"`
	SlugConflict int          `json:"slug_conflicts"`
}

// record tallies one outcome into the aggregate.
func (r *Result) record(item ItemResult) {
	r.Items = append(r.Items, item)
	switch item.Outcome {
	case OutcomeSuccess:
		r.Success++
	case OutcomeFailed:
		r.Failed++
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeSlugConflict:
		r.SlugConflict++
	}
}

// Options configures one batch run.
type Options struct {
	// Source is the extraction profile shared by every URL in the run.
	Source *config.SourceConfig

	// CategoryID is attached, unvalidated, to every created record.
	CategoryID string

	// Status is the publication status for created records.
	Status string
}

// Orchestrator wires the pipeline components together.
type Orchestrator struct {
	fetcher *fetcher.Fetcher
	store   catalog.Store
	metrics *monitoring.Metrics
	logger  utils.Logger
}

// New creates an orchestrator. metrics may be nil.
func New(f *fetcher.Fetcher, store catalog.Store, metrics *monitoring.Metrics, logger utils.Logger) *Orchestrator {
	if logger == nil {
		logger = utils.NopLogger{}
	}
	return &Orchestrator{
		fetcher: f,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Run processes the URLs in input order. Configuration problems (bad
// profile, oversized batch) abort before any fetch. Everything that
// happens per URL is caught and recorded, never propagated: one bad
// URL must not poison the rest of the batch.
func (o *Orchestrator) Run(ctx context.Context, urls []string, opts Options) (*Result, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("source profile is required")
	}
	if err := opts.Source.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Source.ValidateSelectors(); err != nil {
		return nil, err
	}
	if len(urls) > MaxURLs {
		return nil, fmt.Errorf("batch size %d exceeds the maximum of %d URLs", len(urls), MaxURLs)
	}

	var limiter *rate.Limiter
	if delay := opts.Source.RequestDelay(); delay > 0 {
		// rate.Every gives exactly the uniform spacing the profile
		// asks for; this is politeness throttling, not backoff.
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	o.metrics.ObserveBatchStart()
	start := time.Now()
	defer func() {
		o.metrics.ObserveBatchDone(time.Since(start))
	}()

	result := &Result{Items: []ItemResult{}}
	log := o.logger.WithField("source", opts.Source.Name)

	for _, raw := range urls {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		item, _ := o.processURL(ctx, raw, opts, limiter)
		result.record(item)
		o.metrics.ObserveBatchItem(string(item.Outcome))

		switch item.Outcome {
		case OutcomeSuccess:
			log.Infof("imported %s as %q (id=%d)", item.URL, item.Slug, item.RecordID)
		case OutcomeFailed:
			log.Warnf("failed %s: %s", item.URL, item.Error)
		default:
			log.Debugf("%s %s", item.Outcome, item.URL)
		}
	}

	return result, nil
}

// Process runs the pipeline for one URL without the batch-level
// politeness limiter. The job processor uses it and keeps the returned
// fields so a conflicting item can be approved later without
// refetching. fields is non-nil whenever extraction completed.
func (o *Orchestrator) Process(ctx context.Context, rawURL string, opts Options) (ItemResult, *catalog.Fields) {
	return o.processURL(ctx, rawURL, opts, nil)
}

// processURL runs the pipeline for a single URL. All errors end up in
// the returned ItemResult.
func (o *Orchestrator) processURL(ctx context.Context, raw string, opts Options, limiter *rate.Limiter) (ItemResult, *catalog.Fields) {
	item := ItemResult{URL: raw}

	normalized, err := urlutil.Normalize(raw)
	if err != nil {
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		return item, nil
	}
	item.URL = normalized

	// Duplicate check happens before the fetch so known URLs cost
	// nothing against the remote origin.
	existing, err := o.store.FindBySourceURL(ctx, normalized, opts.Source.Type)
	if err == nil {
		item.Outcome = OutcomeDuplicate
		item.RecordID = existing.ID
		item.Slug = existing.Slug
		return item, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		item.Outcome = OutcomeFailed
		item.Error = fmt.Sprintf("duplicate check failed: %v", err)
		return item, nil
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
			return item, nil
		}
	}

	fetchStart := time.Now()
	html, err := o.fetcher.Fetch(ctx, normalized, opts.Source.RequestHeaders)
	if err != nil {
		var httpErr *fetcher.HTTPError
		if errors.As(err, &httpErr) {
			o.metrics.ObserveFetch(httpErr.StatusCode, time.Since(fetchStart))
		} else {
			o.metrics.ObserveFetch(0, time.Since(fetchStart))
		}
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		return item, nil
	}
	o.metrics.ObserveFetch(200, time.Since(fetchStart))

	fields, title, err := o.extractFields(html, normalized, opts)
	if err != nil {
		item.Outcome = OutcomeFailed
		item.Error = err.Error()
		return item, nil
	}
	item.Title = title

	fields.SourceURL = normalized
	fields.CategoryID = opts.CategoryID
	fields.Status = opts.Status

	// Reject mode: a batch import never mutates a colliding slug; the
	// operator reviews conflicts explicitly.
	slugValue, err := slug.Check(ctx, title, o.slugExists(opts.Source.Type))
	if err != nil {
		item.Slug = slugValue
		if errors.Is(err, slug.ErrConflict) {
			item.Outcome = OutcomeSlugConflict
		} else {
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
		}
		return item, fields
	}
	item.Slug = slugValue
	fields.Slug = slugValue

	record, err := o.store.Create(ctx, opts.Source.Type, *fields)
	if err != nil {
		// A lost uniqueness race against a concurrent run is a
		// classification, not an error.
		switch {
		case errors.Is(err, catalog.ErrDuplicateURL):
			item.Outcome = OutcomeDuplicate
		case errors.Is(err, catalog.ErrSlugTaken):
			item.Outcome = OutcomeSlugConflict
		default:
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
		}
		return item, fields
	}

	item.Outcome = OutcomeSuccess
	item.RecordID = record.ID
	return item, fields
}

// extractFields parses, sanitizes and extracts one fetched page into
// catalog fields.
func (o *Orchestrator) extractFields(html, pageURL string, opts Options) (*catalog.Fields, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse page: %w", err)
	}

	sanitize.Clean(doc, opts.Source.RemoveElements)
	sanitize.ResolveLazyImages(doc)

	switch opts.Source.Type {
	case config.TypeProduct:
		p, err := extract.ExtractProduct(doc, opts.Source.Product, pageURL)
		if err != nil {
			return nil, "", err
		}
		return &catalog.Fields{
			Title:         p.Name,
			Content:       p.Description,
			FeaturedImage: p.FeaturedImage,
			Images:        p.Images,
			Price:         p.Price,
			OriginalPrice: p.OriginalPrice,
			SKU:           p.SKU,
		}, p.Name, nil
	default:
		a, err := extract.ExtractArticle(doc, opts.Source.Article, pageURL)
		if err != nil {
			return nil, "", err
		}
		return &catalog.Fields{
			Title:           a.Title,
			Excerpt:         a.Excerpt,
			Content:         a.Content,
			FeaturedImage:   a.FeaturedImage,
			Images:          a.Images,
			MetaTitle:       a.MetaTitle,
			MetaDescription: a.MetaDescription,
		}, a.Title, nil
	}
}

// slugExists adapts the catalog store to the slug package's existence
// check.
func (o *Orchestrator) slugExists(typ config.CrawlType) slug.ExistsFunc {
	return func(ctx context.Context, s string) (bool, error) {
		_, err := o.store.FindBySlug(ctx, s, typ)
		if errors.Is(err, catalog.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
}
