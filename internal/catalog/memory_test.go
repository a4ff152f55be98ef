// internal/catalog/memory_test.go
package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	record, err := store.Create(ctx, config.TypeArticle, Fields{
		Title:     "Bài viết",
		Slug:      "bai-viet",
		SourceURL: "https://example.com/bai-viet",
		Status:    "draft",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if record.ID == 0 {
		t.Error("created record has no ID")
	}

	byURL, err := store.FindBySourceURL(ctx, "https://example.com/bai-viet", config.TypeArticle)
	if err != nil {
		t.Fatalf("FindBySourceURL returned error: %v", err)
	}
	if byURL.ID != record.ID {
		t.Errorf("lookup ID = %d, want %d", byURL.ID, record.ID)
	}

	bySlug, err := store.FindBySlug(ctx, "bai-viet", config.TypeArticle)
	if err != nil {
		t.Fatalf("FindBySlug returned error: %v", err)
	}
	if bySlug.ID != record.ID {
		t.Errorf("lookup ID = %d, want %d", bySlug.ID, record.ID)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.FindBySourceURL(ctx, "https://example.com/x", config.TypeArticle); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindBySlug(ctx, "x", config.TypeArticle); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDuplicateURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := Fields{Title: "A", Slug: "a", SourceURL: "https://example.com/a"}
	if _, err := store.Create(ctx, config.TypeArticle, first); err != nil {
		t.Fatal(err)
	}

	second := Fields{Title: "B", Slug: "b", SourceURL: "https://example.com/a"}
	_, err := store.Create(ctx, config.TypeArticle, second)
	if !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("expected ErrDuplicateURL, got %v", err)
	}
}

func TestMemoryStoreSlugTaken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Create(ctx, config.TypeArticle, Fields{Slug: "shared", SourceURL: "https://example.com/1"}); err != nil {
		t.Fatal(err)
	}

	_, err := store.Create(ctx, config.TypeArticle, Fields{Slug: "shared", SourceURL: "https://example.com/2"})
	if !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestMemoryStoreTypesAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Create(ctx, config.TypeArticle, Fields{Slug: "shared", SourceURL: "https://example.com/x"}); err != nil {
		t.Fatal(err)
	}

	// The same slug and URL are fine under a different record type.
	if _, err := store.Create(ctx, config.TypeProduct, Fields{Slug: "shared", SourceURL: "https://example.com/x"}); err != nil {
		t.Fatalf("cross-type create should succeed, got %v", err)
	}

	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
}
