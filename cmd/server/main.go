// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonathanvirgo/site-blog-sub002/internal/api"
	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/fetcher"
	"github.com/jonathanvirgo/site-blog-sub002/internal/jobs"
	"github.com/jonathanvirgo/site-blog-sub002/internal/linkextract"
	"github.com/jonathanvirgo/site-blog-sub002/internal/monitoring"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "listen address")
		profileDir  = flag.String("profiles", "configs", "directory of source profile YAML files")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
		jobInterval = flag.Duration("job-interval", 5*time.Second, "queue polling interval")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sitecrawl-server %s (built %s)\n", version, buildTime)
		return
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(*logLevel))
	if err := run(*addr, *profileDir, *jobInterval, logger); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}

func run(addr, profileDir string, jobInterval time.Duration, logger utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := loadProfiles(profileDir, logger)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		logger.Warnf("no source profiles found in %s", profileDir)
	}

	store, closeStore, err := openCatalog(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	jobStore, closeJobs, err := openJobStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeJobs()

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	f := fetcher.New()
	orchestrator := batch.New(f, store, metrics, logger)
	links := linkextract.New(f, logger)
	manager := jobs.NewManager(jobStore, store, orchestrator, profiles, metrics, logger)

	server := &http.Server{
		Addr: addr,
		Handler: api.NewServer(api.Deps{
			Orchestrator: orchestrator,
			Links:        links,
			Jobs:         manager,
			Fetcher:      f,
			Profiles:     profiles,
			Registry:     registry,
			Logger:       logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go processJobs(ctx, manager, jobInterval, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s with %d source profiles", addr, len(profiles))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// processJobs drains the job queue on a fixed interval until the
// context is cancelled.
func processJobs(ctx context.Context, manager *jobs.Manager, interval time.Duration, logger utils.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := manager.ProcessQueued(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Errorf("job processing failed: %v", err)
			}
			if n > 0 {
				logger.Debugf("processed %d queued jobs", n)
			}
		}
	}
}

// loadProfiles reads every YAML profile in the directory, keyed by the
// profile's name.
func loadProfiles(dir string, logger utils.Logger) (map[string]*config.SourceConfig, error) {
	profiles := make(map[string]*config.SourceConfig)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return profiles, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		source, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", path, err)
		}
		if _, exists := profiles[source.Name]; exists {
			return nil, fmt.Errorf("duplicate source name %q in %s", source.Name, path)
		}
		profiles[source.Name] = source
		logger.Debugf("loaded profile %s from %s", source.Name, path)
	}

	return profiles, nil
}

// openCatalog connects to PostgreSQL when DATABASE_URL is set and
// falls back to the in-memory store otherwise.
func openCatalog(ctx context.Context, logger utils.Logger) (catalog.Store, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory catalog store")
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
	logger.Info("connected to PostgreSQL catalog")
	return store, func() { store.Close() }, nil
}

// openJobStore connects to MongoDB when MONGO_URI is set and falls
// back to the in-memory store otherwise.
func openJobStore(ctx context.Context, logger utils.Logger) (jobs.Store, func(), error) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		logger.Warn("MONGO_URI not set, using in-memory job store")
		return jobs.NewMemoryStore(), func() {}, nil
	}

	database := os.Getenv("MONGO_DB")
	if database == "" {
		database = "sitecrawl"
	}

	store, err := jobs.NewMongoStore(ctx, uri, database)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("connected to MongoDB job store (database %s)", database)
	return store, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}, nil
}
