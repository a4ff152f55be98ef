// cmd/sitecrawl/main.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/extract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/linkextract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/output"
	"github.com/jonathanvirgo/site-blog-sub002/internal/sanitize"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `sitecrawl - configurable web content importer

Usage:
  sitecrawl run -config <profile.yaml> [-out results.json] [url ...]
  sitecrawl test -config <profile.yaml> <url>
  sitecrawl links -config <profile.yaml> [url]
  sitecrawl version

Commands:
  run      import the given URLs (or -urls file) into the catalog
  test     fetch one page and print every selector match
  links    extract candidate links from the profile's list page
  version  print version information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "test":
		err = cmdTest(ctx, os.Args[2:])
	case "links":
		err = cmdLinks(ctx, os.Args[2:])
	case "version":
		fmt.Printf("sitecrawl %s (built %s)\n", version, buildTime)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "sitecrawl: %v\n", err)
		os.Exit(1)
	}
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "source profile YAML file")
		urlsFile   = fs.String("urls", "", "file with one URL per line")
		outPath    = fs.String("out", "", "write results to this file (.json, .csv or .xlsx)")
		categoryID = fs.String("category", "", "category ID attached to created records")
		status     = fs.String("status", "draft", "publication status for created records")
		dryRun     = fs.Bool("dry-run", false, "use an in-memory catalog instead of PostgreSQL")
		verbose    = fs.Bool("v", false, "verbose logging")
	)
	fs.Parse(args)

	source, err := loadProfile(*configPath)
	if err != nil {
		return err
	}

	urls := fs.Args()
	if *urlsFile != "" {
		fromFile, err := readURLs(*urlsFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given; pass them as arguments or via -urls")
	}

	logger := newLogger(*verbose)
	store, closeStore, err := openCatalog(ctx, *dryRun, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	orchestrator := batch.New(fetcher.New(), store, nil, logger)
	result, err := orchestrator.Run(ctx, urls, batch.Options{
		Source:     source,
		CategoryID: *categoryID,
		Status:     *status,
	})
	if err != nil {
		return err
	}

	for _, item := range result.Items {
		line := fmt.Sprintf("%-13s %s", item.Outcome, item.URL)
		if item.Error != "" {
			line += "  (" + item.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d success, %d failed, %d duplicate, %d slug conflict\n",
		result.Success, result.Failed, result.Duplicates, result.SlugConflict)

	if *outPath != "" {
		format, err := output.FormatForPath(*outPath)
		if err != nil {
			return err
		}
		writer, err := output.NewWriter(format, *outPath)
		if err != nil {
			return err
		}
		if err := writer.Write(result); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", *outPath)
	}

	return nil
}

func cmdTest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	configPath := fs.String("config", "", "source profile YAML file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("test expects exactly one URL")
	}

	source, err := loadProfile(*configPath)
	if err != nil {
		return err
	}
	selectors := profileSelectors(source)
	if len(selectors) == 0 {
		return fmt.Errorf("profile %s defines no selectors", source.Name)
	}

	pageURL, err := urlutil.Normalize(fs.Arg(0))
	if err != nil {
		return err
	}

	html, err := fetcher.New().Fetch(ctx, pageURL, source.RequestHeaders)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	sanitize.Clean(doc, source.RemoveElements)
	sanitize.ResolveLazyImages(doc)

	for name, matches := range extract.TestSelectors(doc, selectors, pageURL) {
		fmt.Printf("%s (%s): %d match(es)\n", name, selectors[name], len(matches))
		for _, m := range matches {
			if len(m) > 200 {
				m = m[:200] + "..."
			}
			fmt.Printf("  %s\n", m)
		}
	}
	return nil
}

func cmdLinks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("links", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "source profile YAML file")
		verbose    = fs.Bool("v", false, "verbose logging")
	)
	fs.Parse(args)

	source, err := loadProfile(*configPath)
	if err != nil {
		return err
	}
	if source.List == nil {
		return fmt.Errorf("profile %s has no list section", source.Name)
	}

	listURL := source.List.PageTemplate
	if fs.NArg() > 0 {
		listURL = fs.Arg(0)
	}
	if listURL == "" {
		return fmt.Errorf("no listing URL; pass one as an argument")
	}
	// A bare template with {page} is usable as page 1 only after
	// substitution; the extractor handles later pages itself.
	listURL = strings.ReplaceAll(listURL, linkextract.PagePlaceholder, "1")

	extractor := linkextract.New(fetcher.New(), newLogger(*verbose))
	links, err := extractor.Extract(ctx, linkextract.Options{
		URL:            listURL,
		ItemSelector:   source.List.ItemSelector,
		LinkSelector:   source.List.LinkSelector,
		ImageSelector:  source.List.ImageSelector,
		TitleSelector:  source.List.TitleSelector,
		FilterPattern:  source.List.FilterPattern,
		ExcludePattern: source.List.ExcludePattern,
		Limit:          source.List.Limit,
		MaxPages:       source.List.MaxPages,
		PageTemplate:   source.List.PageTemplate,
		Headers:        source.RequestHeaders,
	})
	if err != nil {
		return err
	}

	for _, link := range links {
		if link.Title != "" {
			fmt.Printf("%s\t%s\n", link.URL, link.Title)
		} else {
			fmt.Println(link.URL)
		}
	}
	fmt.Fprintf(os.Stderr, "%d links\n", len(links))
	return nil
}

func loadProfile(path string) (*config.SourceConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("-config is required")
	}
	return config.LoadFromFile(path)
}

// profileSelectors flattens the profile's configured selectors into
// the named map the selector tester expects.
func profileSelectors(source *config.SourceConfig) map[string]string {
	selectors := make(map[string]string)
	add := func(name, selector string) {
		if selector != "" {
			selectors[name] = selector
		}
	}

	if source.Type == config.TypeProduct {
		add("name", source.Product.Name)
		add("description", source.Product.Description)
		add("price", source.Product.Price)
		add("original_price", source.Product.OriginalPrice)
		add("sku", source.Product.SKU)
		add("images", source.Product.Images)
		add("featured_image", source.Product.FeaturedImage)
		return selectors
	}

	add("title", source.Article.Title)
	add("excerpt", source.Article.Excerpt)
	add("content", source.Article.Content)
	add("featured_image", source.Article.FeaturedImage)
	add("meta_title", source.Article.MetaTitle)
	add("meta_description", source.Article.MetaDescription)
	return selectors
}

func readURLs(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}

func newLogger(verbose bool) utils.Logger {
	if verbose {
		return utils.NewLoggerWithLevel(utils.DebugLevel)
	}
	return utils.NewLoggerWithLevel(utils.WarnLevel)
}

// openCatalog picks the catalog backend: in-memory for dry runs,
// PostgreSQL otherwise.
func openCatalog(ctx context.Context, dryRun bool, logger utils.Logger) (catalog.Store, func(), error) {
	if dryRun {
		return catalog.NewMemoryStore(), func() {}, nil
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, falling back to in-memory catalog (records are not persisted)")
		return catalog.NewMemoryStore(), func() {}, nil
	}

	store, err := catalog.NewPostgresStore(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}
