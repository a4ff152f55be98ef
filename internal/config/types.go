// internal/config/types.go

// Package config defines the reusable extraction profiles for the
// crawl pipeline: which CSS selectors to read, which subtrees to strip
// before reading, and how politely to talk to the remote origin.
// A profile is opaque data owned by the operator; selector presence for
// the declared crawl type is checked right before work begins, not at
// construction time.
package config

import (
	"fmt"
	"regexp"
	"time"
)

// CrawlType declares what kind of record a profile extracts.
type CrawlType string

const (
	TypeArticle CrawlType = "article"
	TypeProduct CrawlType = "product"
)

// Valid reports whether the crawl type is one of the known kinds.
func (t CrawlType) Valid() bool {
	return t == TypeArticle || t == TypeProduct
}

// SourceConfig is a named, reusable extraction profile for one site
// family. It is treated as an immutable value after loading.
type SourceConfig struct {
	// Name identifies this profile
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable information about the profile
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Type is the entity kind this profile extracts (article or product)
	Type CrawlType `yaml:"type" json:"type"`

	// Article selectors, used when Type is article
	Article ArticleSelectors `yaml:"article,omitempty" json:"article,omitempty"`

	// Product selectors, used when Type is product
	Product ProductSelectors `yaml:"product,omitempty" json:"product,omitempty"`

	// RemoveElements are CSS selectors whose subtrees are deleted
	// before extraction, after the built-in blocklist
	RemoveElements []string `yaml:"remove_elements,omitempty" json:"remove_elements,omitempty"`

	// RequestHeaders are sent with every fetch for this source
	RequestHeaders map[string]string `yaml:"request_headers,omitempty" json:"request_headers,omitempty"`

	// RequestDelayMs is the minimum spacing between consecutive
	// fetches within one batch run
	RequestDelayMs int `yaml:"request_delay_ms,omitempty" json:"request_delay_ms,omitempty"`

	// List configures the list-page link extractor (optional)
	List *ListConfig `yaml:"list,omitempty" json:"list,omitempty"`

	// Image and SEO are per-source behavior overrides passed through
	// to the persistence collaborator; the core does not interpret them
	Image map[string]string `yaml:"image,omitempty" json:"image,omitempty"`
	SEO   map[string]string `yaml:"seo,omitempty" json:"seo,omitempty"`
}

// ArticleSelectors maps article fields to CSS selectors.
type ArticleSelectors struct {
	Title           string `yaml:"title" json:"title"`
	Excerpt         string `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content         string `yaml:"content" json:"content"`
	FeaturedImage   string `yaml:"featured_image,omitempty" json:"featured_image,omitempty"`
	MetaTitle       string `yaml:"meta_title,omitempty" json:"meta_title,omitempty"`
	MetaDescription string `yaml:"meta_description,omitempty" json:"meta_description,omitempty"`
}

// ProductSelectors maps product fields to CSS selectors.
type ProductSelectors struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	Price         string `yaml:"price,omitempty" json:"price,omitempty"`
	OriginalPrice string `yaml:"original_price,omitempty" json:"original_price,omitempty"`
	SKU           string `yaml:"sku,omitempty" json:"sku,omitempty"`
	Images        string `yaml:"images,omitempty" json:"images,omitempty"`
	FeaturedImage string `yaml:"featured_image,omitempty" json:"featured_image,omitempty"`
}

// ListConfig configures the list-page link extractor.
type ListConfig struct {
	// ItemSelector matches one container per candidate item. When
	// empty, LinkSelector is applied against the whole document.
	ItemSelector string `yaml:"item_selector,omitempty" json:"item_selector,omitempty"`

	// LinkSelector locates the anchor inside each item (or globally)
	LinkSelector string `yaml:"link_selector" json:"link_selector"`

	// ImageSelector locates the thumbnail inside each item (optional)
	ImageSelector string `yaml:"image_selector,omitempty" json:"image_selector,omitempty"`

	// TitleSelector locates the title inside each item (optional;
	// anchor text is used when absent)
	TitleSelector string `yaml:"title_selector,omitempty" json:"title_selector,omitempty"`

	// FilterPattern keeps only links matching the regex
	FilterPattern string `yaml:"filter_pattern,omitempty" json:"filter_pattern,omitempty"`

	// ExcludePattern drops links matching the regex, applied after
	// FilterPattern
	ExcludePattern string `yaml:"exclude_pattern,omitempty" json:"exclude_pattern,omitempty"`

	// MaxPages bounds the pagination loop over PageTemplate
	MaxPages int `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`

	// PageTemplate is a URL template containing {page}, substituted
	// for pages 2..MaxPages
	PageTemplate string `yaml:"page_template,omitempty" json:"page_template,omitempty"`

	// Limit caps the number of collected links (default 100)
	Limit int `yaml:"limit,omitempty" json:"limit,omitempty"`

	// CategoryMappings maps list-page paths to catalog category IDs
	CategoryMappings map[string]string `yaml:"category_mappings,omitempty" json:"category_mappings,omitempty"`
}

// RequestDelay returns the configured inter-request delay as a
// Duration. Zero means no throttling.
func (c *SourceConfig) RequestDelay() time.Duration {
	if c.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Validate checks profile-level invariants that do not depend on the
// crawl being started: the declared type, the delay, and list regexes.
// Selector presence is checked by ValidateSelectors right before a run.
func (c *SourceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown crawl type %q", c.Type)
	}
	if c.RequestDelayMs < 0 {
		return fmt.Errorf("request_delay_ms cannot be negative")
	}
	if c.List != nil {
		if err := c.List.Validate(); err != nil {
			return fmt.Errorf("list config: %w", err)
		}
	}
	return nil
}

// ValidateSelectors verifies that the profile carries the minimum
// selector set for its declared type: a title equivalent and a content
// equivalent. Called synchronously before any fetch occurs.
func (c *SourceConfig) ValidateSelectors() error {
	switch c.Type {
	case TypeArticle:
		if c.Article.Title == "" {
			return fmt.Errorf("article profile %q is missing the title selector", c.Name)
		}
		if c.Article.Content == "" {
			return fmt.Errorf("article profile %q is missing the content selector", c.Name)
		}
	case TypeProduct:
		if c.Product.Name == "" {
			return fmt.Errorf("product profile %q is missing the name selector", c.Name)
		}
		if c.Product.Description == "" {
			return fmt.Errorf("product profile %q is missing the description selector", c.Name)
		}
	default:
		return fmt.Errorf("unknown crawl type %q", c.Type)
	}
	return nil
}

// Validate checks the list-page configuration. Regex patterns are
// compiled here so a bad pattern is a configuration error reported to
// the caller, never a crash mid-crawl.
func (c *ListConfig) Validate() error {
	if c.LinkSelector == "" {
		return fmt.Errorf("link_selector is required")
	}
	if c.FilterPattern != "" {
		if _, err := regexp.Compile(c.FilterPattern); err != nil {
			return fmt.Errorf("invalid filter_pattern: %w", err)
		}
	}
	if c.ExcludePattern != "" {
		if _, err := regexp.Compile(c.ExcludePattern); err != nil {
			return fmt.Errorf("invalid exclude_pattern: %w", err)
		}
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max_pages cannot be negative")
	}
	if c.MaxPages > 1 && c.PageTemplate == "" {
		return fmt.Errorf("page_template is required when max_pages > 1")
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	return nil
}
