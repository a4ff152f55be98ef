// internal/linkextract/linkextract.go

// Package linkextract discovers candidate detail-page URLs on
// category and listing pages. It is an independent entry point feeding
// URLs into the batch orchestrator.
package linkextract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/sanitize"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// DefaultLimit caps collected links when the caller does not set one.
const DefaultLimit = 100

// PagePlaceholder is substituted with the page number in pagination
// templates.
const PagePlaceholder = "{page}"

// Link is one discovered candidate.
type Link struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Image string `json:"image,omitempty"`
}

// Options configures one extraction call.
type Options struct {
	// URL is the listing page to fetch.
	URL string

	// ItemSelector matches one container per candidate. When empty,
	// LinkSelector is applied against the whole document.
	ItemSelector string

	// LinkSelector locates the anchor inside each item.
	LinkSelector string

	// ImageSelector and TitleSelector locate optional sub-elements
	// inside each item.
	ImageSelector string
	TitleSelector string

	// FilterPattern keeps only matching links; ExcludePattern drops
	// matching links afterwards.
	FilterPattern  string
	ExcludePattern string

	// Limit caps the number of collected links (DefaultLimit when 0).
	Limit int

	// MaxPages and PageTemplate drive the bounded pagination loop:
	// pages 2..MaxPages are fetched from PageTemplate with {page}
	// substituted. MaxPages <= 1 means the single URL only.
	MaxPages     int
	PageTemplate string

	// Headers are sent with every fetch.
	Headers map[string]string
}

// compiled holds the validated form of Options. All selectors and
// patterns are checked up front so a bad profile is a client error
// reported before any fetch, never a crash mid-crawl.
type compiled struct {
	item    goquery.Matcher
	link    goquery.Matcher
	image   goquery.Matcher
	title   goquery.Matcher
	filter  *regexp.Regexp
	exclude *regexp.Regexp
	limit   int
}

// Extractor fetches listing pages and extracts candidate links.
type Extractor struct {
	fetcher *fetcher.Fetcher
	logger  utils.Logger
}

// New creates a link extractor.
func New(f *fetcher.Fetcher, logger utils.Logger) *Extractor {
	if logger == nil {
		logger = utils.NopLogger{}
	}
	return &Extractor{fetcher: f, logger: logger}
}

// Extract fetches the listing page (and paginated follow-ups when
// configured) and returns an ordered, de-duplicated list of candidate
// links.
func (e *Extractor) Extract(ctx context.Context, opts Options) ([]Link, error) {
	c, err := compile(opts)
	if err != nil {
		return nil, err
	}

	links := []Link{}
	seen := make(map[string]bool)

	pages := opts.MaxPages
	if pages < 1 {
		pages = 1
	}

	for page := 1; page <= pages; page++ {
		pageURL, err := pageURL(opts, page)
		if err != nil {
			return nil, err
		}

		before := len(links)
		if err := e.extractPage(ctx, pageURL, c, opts.Headers, seen, &links); err != nil {
			if page == 1 {
				return nil, err
			}
			// Later pages are best effort: sites often 404 past the
			// last real page.
			e.logger.Warnf("list page %d (%s) failed: %v", page, pageURL, err)
			break
		}

		if len(links) >= c.limit {
			links = links[:c.limit]
			break
		}
		if page > 1 && len(links) == before {
			break
		}
	}

	return links, nil
}

// extractPage fetches one listing page and appends its candidates.
func (e *Extractor) extractPage(ctx context.Context, pageURL string, c compiled, headers map[string]string, seen map[string]bool, links *[]Link) error {
	html, err := e.fetcher.Fetch(ctx, pageURL, headers)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse list page %s: %w", pageURL, err)
	}

	collect := func(anchor, scope *goquery.Selection) {
		if len(*links) >= c.limit {
			return
		}

		href, _ := anchor.Attr("href")
		resolved, ok := usableHref(pageURL, href)
		if !ok {
			return
		}
		if c.filter != nil && !c.filter.MatchString(resolved) {
			return
		}
		if c.exclude != nil && c.exclude.MatchString(resolved) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		link := Link{URL: resolved, Title: strings.TrimSpace(anchor.Text())}
		if c.title != nil {
			if t := scope.FindMatcher(c.title).First(); t.Length() > 0 {
				link.Title = strings.TrimSpace(t.Text())
			}
		}
		if c.image != nil {
			if img := scope.FindMatcher(c.image).First(); img.Length() > 0 {
				if src := imageSource(img, pageURL); src != "" {
					link.Image = src
				}
			}
		}

		*links = append(*links, link)
	}

	if c.item != nil {
		doc.FindMatcher(c.item).Each(func(_ int, item *goquery.Selection) {
			anchor := item.FindMatcher(c.link).First()
			if anchor.Length() == 0 {
				// The item container may itself be the anchor.
				if goquery.NodeName(item) == "a" {
					anchor = item
				} else {
					return
				}
			}
			collect(anchor, item)
		})
	} else {
		doc.FindMatcher(c.link).Each(func(_ int, anchor *goquery.Selection) {
			collect(anchor, anchor)
		})
	}

	return nil
}

// compile validates Options into matchers and regexes.
func compile(opts Options) (compiled, error) {
	c := compiled{limit: opts.Limit}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}

	if strings.TrimSpace(opts.URL) == "" {
		return c, fmt.Errorf("listing URL is required")
	}
	if strings.TrimSpace(opts.LinkSelector) == "" {
		return c, fmt.Errorf("link selector is required")
	}

	var err error
	if c.link, err = cascadia.Compile(opts.LinkSelector); err != nil {
		return c, fmt.Errorf("invalid link selector %q: %w", opts.LinkSelector, err)
	}
	if opts.ItemSelector != "" {
		if c.item, err = cascadia.Compile(opts.ItemSelector); err != nil {
			return c, fmt.Errorf("invalid item selector %q: %w", opts.ItemSelector, err)
		}
	}
	if opts.ImageSelector != "" {
		if c.image, err = cascadia.Compile(opts.ImageSelector); err != nil {
			return c, fmt.Errorf("invalid image selector %q: %w", opts.ImageSelector, err)
		}
	}
	if opts.TitleSelector != "" {
		if c.title, err = cascadia.Compile(opts.TitleSelector); err != nil {
			return c, fmt.Errorf("invalid title selector %q: %w", opts.TitleSelector, err)
		}
	}
	if opts.FilterPattern != "" {
		if c.filter, err = regexp.Compile(opts.FilterPattern); err != nil {
			return c, fmt.Errorf("invalid filter pattern %q: %w", opts.FilterPattern, err)
		}
	}
	if opts.ExcludePattern != "" {
		if c.exclude, err = regexp.Compile(opts.ExcludePattern); err != nil {
			return c, fmt.Errorf("invalid exclude pattern %q: %w", opts.ExcludePattern, err)
		}
	}
	if opts.MaxPages > 1 && !strings.Contains(opts.PageTemplate, PagePlaceholder) {
		return c, fmt.Errorf("page template must contain %s when max pages > 1", PagePlaceholder)
	}

	return c, nil
}

// pageURL returns the URL for the given page number.
func pageURL(opts Options, page int) (string, error) {
	if page == 1 {
		return opts.URL, nil
	}
	return strings.ReplaceAll(opts.PageTemplate, PagePlaceholder, strconv.Itoa(page)), nil
}

// usableHref filters out anchors that cannot lead to a detail page
// and resolves the rest against the listing page.
func usableHref(pageURL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", false
	}

	// Fragments never address a different page; dropping them here
	// keeps the dedupe keyed the same way the catalog dedup is.
	if idx := strings.Index(href, "#"); idx >= 0 {
		href = href[:idx]
		if href == "" {
			return "", false
		}
	}

	resolved, err := urlutil.Resolve(pageURL, href)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// imageSource resolves an image sub-element to an absolute URL,
// honoring lazy-load attributes the same way extraction does.
func imageSource(img *goquery.Selection, pageURL string) string {
	if goquery.NodeName(img) != "img" {
		nested := img.Find("img").First()
		if nested.Length() == 0 {
			return ""
		}
		img = nested
	}

	src, _ := img.Attr("src")
	src = strings.TrimSpace(src)
	if src == "" || urlutil.IsDataURI(src) {
		src = sanitize.LazySource(img)
	}
	if src == "" {
		return ""
	}

	resolved, err := urlutil.Resolve(pageURL, src)
	if err != nil {
		return ""
	}
	return resolved
}
