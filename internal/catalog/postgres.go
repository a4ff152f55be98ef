// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}

	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the crawl_records table and its uniqueness
// constraints. The unique indexes are the correctness backstop for
// concurrent batch runs.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS crawl_records (
			id BIGSERIAL PRIMARY KEY,
			record_type TEXT NOT NULL,
			slug TEXT NOT NULL,
			title TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			featured_image TEXT NOT NULL DEFAULT '',
			images JSONB NOT NULL DEFAULT '[]',
			price BIGINT,
			original_price BIGINT,
			sku TEXT NOT NULL DEFAULT '',
			meta_title TEXT NOT NULL DEFAULT '',
			meta_description TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL,
			category_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT crawl_records_type_source_url_key UNIQUE (record_type, source_url),
			CONSTRAINT crawl_records_type_slug_key UNIQUE (record_type, slug)
		);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create crawl_records schema: %w", err)
	}
	return nil
}

// FindBySourceURL implements Store.
func (s *PostgresStore) FindBySourceURL(ctx context.Context, sourceURL string, typ config.CrawlType) (*Record, error) {
	return s.findBy(ctx, "source_url", sourceURL, typ)
}

// FindBySlug implements Store.
func (s *PostgresStore) FindBySlug(ctx context.Context, slug string, typ config.CrawlType) (*Record, error) {
	return s.findBy(ctx, "slug", slug, typ)
}

func (s *PostgresStore) findBy(ctx context.Context, column, value string, typ config.CrawlType) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT id, record_type, slug, title, source_url, category_id, status, created_at
		FROM crawl_records
		WHERE %s = $1 AND record_type = $2`, column)

	var r Record
	err := s.db.QueryRowContext(ctx, query, value, string(typ)).Scan(
		&r.ID, &r.Type, &r.Slug, &r.Title, &r.SourceURL, &r.CategoryID, &r.Status, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog lookup by %s failed: %w", column, err)
	}
	return &r, nil
}

// Create implements Store. Unique-constraint violations are mapped to
// ErrDuplicateURL / ErrSlugTaken so a lost race reclassifies instead
// of failing the batch item outright.
func (s *PostgresStore) Create(ctx context.Context, typ config.CrawlType, fields Fields) (*Record, error) {
	images, err := json.Marshal(fields.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image list: %w", err)
	}

	const query = `
		INSERT INTO crawl_records (
			record_type, slug, title, excerpt, content, featured_image, images,
			price, original_price, sku, meta_title, meta_description,
			source_url, category_id, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, created_at`

	r := Record{
		Type:       typ,
		Slug:       fields.Slug,
		Title:      fields.Title,
		SourceURL:  fields.SourceURL,
		CategoryID: fields.CategoryID,
		Status:     fields.Status,
	}

	err = s.db.QueryRowContext(ctx, query,
		string(typ), fields.Slug, fields.Title, fields.Excerpt, fields.Content,
		fields.FeaturedImage, images, fields.Price, fields.OriginalPrice, fields.SKU,
		fields.MetaTitle, fields.MetaDescription, fields.SourceURL, fields.CategoryID,
		fields.Status,
	).Scan(&r.ID, &r.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "slug") {
				return nil, fmt.Errorf("%w: %s", ErrSlugTaken, fields.Slug)
			}
			return nil, fmt.Errorf("%w: %s", ErrDuplicateURL, fields.SourceURL)
		}
		return nil, fmt.Errorf("failed to create catalog record: %w", err)
	}

	return &r, nil
}

// Close releases the database connection pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
