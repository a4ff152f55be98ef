// internal/sanitize/sanitize.go

// Package sanitize cleans a parsed document before extraction reads
// it. Cleanup is a separate phase on purpose: the extraction engine
// stays free of side effects and can be tested against an already
// sanitized tree.
package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
)

// builtinBlocklist is always stripped before the caller's selectors:
// executable content plus the ad and share-widget classes that keep
// showing up inside otherwise clean article bodies.
var builtinBlocklist = []string{
	"script",
	"style",
	"noscript",
	"iframe",
	".ads",
	".advertisement",
	".ad-container",
	".banner-ads",
	".social-share",
	".share-buttons",
	".social-widget",
	".fb-like",
	".fb-comments",
	".related-posts",
}

// lazyAttrs is the fixed priority list of lazy-load attribute names.
// The order is load-bearing: real sources disagree on which attribute
// holds the full-size URL, and this is the order the pipeline has
// always used.
var lazyAttrs = []string{
	"data-src",
	"data-lazy-src",
	"data-original",
	"data-srcset",
	"data-lazy-srcset",
	"data-echo",
	"data-img-src",
}

// Clean removes the built-in blocklist and then the caller's
// selectors from the document. A selector that matches nothing or does
// not compile is skipped; cleanup never aborts the pipeline.
func Clean(doc *goquery.Document, removeSelectors []string) {
	for _, sel := range builtinBlocklist {
		remove(doc, sel)
	}
	for _, sel := range removeSelectors {
		remove(doc, sel)
	}
}

// remove deletes all subtrees matching the selector. The selector is
// compiled explicitly because goquery's Find panics on syntactically
// invalid input, and operator-supplied profiles cannot be trusted to
// that degree.
func remove(doc *goquery.Document, selector string) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return
	}

	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return
	}

	doc.FindMatcher(matcher).Remove()
}

// ResolveLazyImages promotes lazy-load attribute values to the src
// attribute for every img whose src is empty or a data-URI
// placeholder. Extraction is selector-blind to lazy-loading, so this
// must run before anything reads image sources.
func ResolveLazyImages(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src != "" && !urlutil.IsDataURI(src) {
			return
		}

		if resolved := LazySource(img); resolved != "" {
			img.SetAttr("src", resolved)
		}
	})
}

// LazySource scans the lazy-load attributes of an img element in
// priority order and returns the first usable URL, or "" when none is
// found. Srcset-shaped values contribute their first URL token.
func LazySource(img *goquery.Selection) string {
	for _, attr := range lazyAttrs {
		value, ok := img.Attr(attr)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || urlutil.IsDataURI(value) {
			continue
		}
		if strings.Contains(attr, "srcset") {
			value = firstSrcsetURL(value)
			if value == "" {
				continue
			}
		}
		return value
	}
	return ""
}

// firstSrcsetURL extracts the URL of the first candidate in a srcset
// value ("url1 640w, url2 1280w").
func firstSrcsetURL(srcset string) string {
	first := srcset
	if idx := strings.Index(srcset, ","); idx >= 0 {
		first = srcset[:idx]
	}
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
