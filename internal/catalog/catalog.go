// internal/catalog/catalog.go

// Package catalog abstracts the persistent store the crawl pipeline
// writes extracted records into. The store is the single source of
// truth for uniqueness: the orchestrator's duplicate and slug checks
// are check-then-act and racy across concurrent runs, so unique
// constraint violations at write time are converted back into the
// duplicate / slug-conflict classifications.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("catalog record not found")

// ErrDuplicateURL is returned by Create when another record of the
// same type already holds the source URL.
var ErrDuplicateURL = errors.New("source URL already exists")

// ErrSlugTaken is returned by Create when another record of the same
// type already holds the slug.
var ErrSlugTaken = errors.New("slug already exists")

// Record is a persisted catalog entry as seen by the crawl pipeline.
type Record struct {
	ID         int64            `json:"id"`
	Type       config.CrawlType `json:"type"`
	Slug       string           `json:"slug"`
	Title      string           `json:"title"`
	SourceURL  string           `json:"source_url"`
	CategoryID string           `json:"category_id,omitempty"`
	Status     string           `json:"status,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Fields carries everything needed to create a record. The category
// reference is an opaque identifier supplied by the caller; the core
// does not validate it.
type Fields struct {
	Title           string
	Slug            string
	Excerpt         string
	Content         string
	FeaturedImage   string
	Images          []string
	Price           *int64
	OriginalPrice   *int64
	SKU             string
	MetaTitle       string
	MetaDescription string
	SourceURL       string
	CategoryID      string
	Status          string
}

// Store is implemented by the persistence collaborator. Uniqueness on
// (type, source_url) and (type, slug) must be enforced atomically at
// the storage layer.
type Store interface {
	// FindBySourceURL looks up a record by its normalized source URL.
	FindBySourceURL(ctx context.Context, sourceURL string, typ config.CrawlType) (*Record, error)

	// FindBySlug looks up a record by slug.
	FindBySlug(ctx context.Context, slug string, typ config.CrawlType) (*Record, error)

	// Create persists a new record. A losing uniqueness race surfaces
	// as ErrDuplicateURL or ErrSlugTaken.
	Create(ctx context.Context, typ config.CrawlType, fields Fields) (*Record, error)
}
