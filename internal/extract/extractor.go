// internal/extract/extractor.go

// Package extract evaluates a source profile's CSS selectors against
// a sanitized document and produces structured article or product
// records. It performs no I/O and no document mutation beyond
// rewriting image references inside the extracted content fragment.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/sanitize"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
)

// ErrMissingTitle is returned when the title selector yields nothing.
// The caller must not create a catalog record in that case.
var ErrMissingTitle = errors.New("missing title")

// ErrMissingContent is returned when the content selector yields an
// empty fragment.
var ErrMissingContent = errors.New("missing content")

const (
	metaTitleMax       = 60
	metaDescriptionMax = 160
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// ExtractArticle evaluates article selectors against the document.
// baseURL is the URL that was actually fetched; relative image
// references resolve against its origin, never against a <base> tag.
func ExtractArticle(doc *goquery.Document, sel config.ArticleSelectors, baseURL string) (*Article, error) {
	title := scalarValue(doc, sel.Title, baseURL)
	if title == "" {
		return nil, fmt.Errorf("selector %q: %w", sel.Title, ErrMissingTitle)
	}

	content, images, err := contentFragment(doc, sel.Content, baseURL)
	if err != nil {
		return nil, err
	}

	a := &Article{
		Title:           title,
		Excerpt:         scalarValue(doc, sel.Excerpt, baseURL),
		Content:         content,
		Images:          images,
		FeaturedImage:   imageValue(doc, sel.FeaturedImage, baseURL),
		MetaTitle:       scalarValue(doc, sel.MetaTitle, baseURL),
		MetaDescription: scalarValue(doc, sel.MetaDescription, baseURL),
	}

	if a.MetaTitle == "" {
		a.MetaTitle = truncateRunes(a.Title, metaTitleMax)
	}
	if a.MetaDescription == "" {
		a.MetaDescription = truncateRunes(a.Excerpt, metaDescriptionMax)
	}

	return a, nil
}

// ExtractProduct evaluates product selectors against the document.
func ExtractProduct(doc *goquery.Document, sel config.ProductSelectors, baseURL string) (*Product, error) {
	name := scalarValue(doc, sel.Name, baseURL)
	if name == "" {
		return nil, fmt.Errorf("selector %q: %w", sel.Name, ErrMissingTitle)
	}

	description, images, err := contentFragment(doc, sel.Description, baseURL)
	if err != nil {
		return nil, err
	}

	p := &Product{
		Name:          name,
		Description:   description,
		Price:         parsePrice(scalarValue(doc, sel.Price, baseURL)),
		OriginalPrice: parsePrice(scalarValue(doc, sel.OriginalPrice, baseURL)),
		SKU:           scalarValue(doc, sel.SKU, baseURL),
		FeaturedImage: imageValue(doc, sel.FeaturedImage, baseURL),
		Images:        images,
	}

	// A dedicated images selector widens the gallery beyond what the
	// description body contains.
	if sel.Images != "" {
		p.Images = mergeImages(p.Images, imageList(doc, sel.Images, baseURL))
	}

	return p, nil
}

// TestSelectors returns every match for every selector in the map,
// used for interactive selector tuning. Unlike extraction proper, all
// matches are reported, not just the first.
func TestSelectors(doc *goquery.Document, selectors map[string]string, baseURL string) map[string][]string {
	out := make(map[string][]string, len(selectors))
	for name, selector := range selectors {
		matches := []string{}
		find(doc, selector).Each(func(_ int, s *goquery.Selection) {
			if v := elementValue(s, baseURL); v != "" {
				matches = append(matches, v)
			}
		})
		out[name] = matches
	}
	return out
}

// matchNothing satisfies goquery.Matcher with an empty result set,
// standing in for selectors that are empty or do not compile.
type matchNothing struct{}

func (matchNothing) Match(*html.Node) bool             { return false }
func (matchNothing) MatchAll(*html.Node) []*html.Node  { return nil }
func (matchNothing) Filter([]*html.Node) []*html.Node  { return nil }

// find compiles the selector explicitly so operator-supplied profiles
// cannot panic goquery; an invalid selector behaves as "no match".
func find(doc *goquery.Document, selector string) *goquery.Selection {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return doc.FindMatcher(matchNothing{})
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return doc.FindMatcher(matchNothing{})
	}
	return doc.FindMatcher(matcher)
}

// scalarValue extracts the first match of the selector as a scalar.
func scalarValue(doc *goquery.Document, selector, baseURL string) string {
	if selector == "" {
		return ""
	}
	s := find(doc, selector).First()
	if s.Length() == 0 {
		return ""
	}
	return elementValue(s, baseURL)
}

// imageValue is scalarValue restricted to an image result: it returns
// an absolute URL or nothing.
func imageValue(doc *goquery.Document, selector, baseURL string) string {
	if selector == "" {
		return ""
	}
	s := find(doc, selector).First()
	if s.Length() == 0 {
		return ""
	}
	if goquery.NodeName(s) == "img" {
		return imageSource(s, baseURL)
	}
	// Allow meta og:image style selectors for the featured image.
	if goquery.NodeName(s) == "meta" {
		if content, ok := s.Attr("content"); ok {
			if abs, err := urlutil.Resolve(baseURL, content); err == nil {
				return abs
			}
		}
	}
	return ""
}

// elementValue applies the per-element-kind rules: <meta> yields its
// content attribute, <img> yields the resolved absolute source, and
// anything else yields trimmed text. The content field bypasses this
// and takes inner HTML via contentFragment.
func elementValue(s *goquery.Selection, baseURL string) string {
	switch goquery.NodeName(s) {
	case "meta":
		content, _ := s.Attr("content")
		return strings.TrimSpace(content)
	case "img":
		return imageSource(s, baseURL)
	default:
		return strings.TrimSpace(s.Text())
	}
}

// imageSource resolves an img element's effective source to an
// absolute URL, falling back to lazy-load attributes when src is
// still a placeholder at extraction time.
func imageSource(img *goquery.Selection, baseURL string) string {
	src, _ := img.Attr("src")
	src = strings.TrimSpace(src)
	if src == "" || urlutil.IsDataURI(src) {
		src = sanitize.LazySource(img)
	}
	if src == "" {
		return ""
	}
	abs, err := urlutil.Resolve(baseURL, src)
	if err != nil {
		return ""
	}
	return abs
}

// contentFragment extracts the inner HTML of the first content match,
// rewrites its descendant image references to absolute URLs, and
// collects them in document order with exact duplicates removed.
func contentFragment(doc *goquery.Document, selector, baseURL string) (string, []string, error) {
	if selector == "" {
		return "", nil, fmt.Errorf("content selector is empty: %w", ErrMissingContent)
	}

	s := find(doc, selector).First()
	if s.Length() == 0 {
		return "", nil, fmt.Errorf("selector %q: %w", selector, ErrMissingContent)
	}

	var images []string
	seen := make(map[string]bool)

	s.Find("img").Each(func(_ int, img *goquery.Selection) {
		abs := imageSource(img, baseURL)
		if abs == "" {
			return
		}
		img.SetAttr("src", abs)
		if !seen[abs] {
			seen[abs] = true
			images = append(images, abs)
		}
	})

	html, err := s.Html()
	if err != nil {
		return "", nil, fmt.Errorf("failed to render content fragment: %w", err)
	}
	html = strings.TrimSpace(html)
	if html == "" {
		return "", nil, fmt.Errorf("selector %q: %w", selector, ErrMissingContent)
	}

	return html, images, nil
}

// imageList collects resolved sources for every element matched by an
// explicit image-list selector.
func imageList(doc *goquery.Document, selector, baseURL string) []string {
	var images []string
	find(doc, selector).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "img" {
			s = s.Find("img").First()
			if s.Length() == 0 {
				return
			}
		}
		if abs := imageSource(s, baseURL); abs != "" {
			images = append(images, abs)
		}
	})
	return images
}

// mergeImages appends extras to base, keeping first-seen order and
// dropping exact duplicates.
func mergeImages(base, extras []string) []string {
	seen := make(map[string]bool, len(base))
	for _, u := range base {
		seen[u] = true
	}
	for _, u := range extras {
		if !seen[u] {
			seen[u] = true
			base = append(base, u)
		}
	}
	return base
}

// parsePrice strips all non-digit characters and parses the rest as
// an integer. Empty or unparsable text yields nil, never an error;
// prices on the source sites carry thousand separators and currency
// marks in no consistent format.
func parsePrice(text string) *int64 {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
