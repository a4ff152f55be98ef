// internal/extract/types.go
package extract

// Article is the extraction result for an article-type source.
// Title and Content are required; everything else is best effort.
type Article struct {
	Title           string   `json:"title"`
	Excerpt         string   `json:"excerpt,omitempty"`
	Content         string   `json:"content"`
	FeaturedImage   string   `json:"featured_image,omitempty"`
	Images          []string `json:"images,omitempty"`
	MetaTitle       string   `json:"meta_title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
}

// Product is the extraction result for a product-type source.
// Price and OriginalPrice are nil when the source text was empty or
// unparsable; that is never an error.
type Product struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         *int64   `json:"price,omitempty"`
	OriginalPrice *int64   `json:"original_price,omitempty"`
	SKU           string   `json:"sku,omitempty"`
	FeaturedImage string   `json:"featured_image,omitempty"`
	Images        []string `json:"images,omitempty"`
}
