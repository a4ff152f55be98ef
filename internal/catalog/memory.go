// internal/catalog/memory.go
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
)

// MemoryStore is an in-memory Store with the same uniqueness
// semantics as the PostgreSQL implementation. It backs tests and the
// CLI's dry-run mode.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records []*Record
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// FindBySourceURL implements Store.
func (s *MemoryStore) FindBySourceURL(_ context.Context, sourceURL string, typ config.CrawlType) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Type == typ && r.SourceURL == sourceURL {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// FindBySlug implements Store.
func (s *MemoryStore) FindBySlug(_ context.Context, slug string, typ config.CrawlType) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Type == typ && r.Slug == slug {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// Create implements Store, enforcing both uniqueness constraints under
// a single lock so concurrent runs observe the same atomicity as the
// database.
func (s *MemoryStore) Create(_ context.Context, typ config.CrawlType, fields Fields) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Type != typ {
			continue
		}
		if fields.SourceURL != "" && r.SourceURL == fields.SourceURL {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateURL, fields.SourceURL)
		}
		if r.Slug == fields.Slug {
			return nil, fmt.Errorf("%w: %s", ErrSlugTaken, fields.Slug)
		}
	}

	record := &Record{
		ID:         s.nextID,
		Type:       typ,
		Slug:       fields.Slug,
		Title:      fields.Title,
		SourceURL:  fields.SourceURL,
		CategoryID: fields.CategoryID,
		Status:     fields.Status,
		CreatedAt:  time.Now(),
	}
	s.nextID++
	s.records = append(s.records, record)

	copied := *record
	return &copied, nil
}

// Len reports the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
