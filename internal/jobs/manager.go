// internal/jobs/manager.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jonathanvirgo/site-blog-sub002/internal/batch"
	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
	"github.com/jonathanvirgo/site-blog-sub002/internal/monitoring"
	"github.com/jonathanvirgo/site-blog-sub002/internal/slug"
	"github.com/jonathanvirgo/site-blog-sub002/internal/urlutil"
	"github.com/jonathanvirgo/site-blog-sub002/internal/utils"
)

// MaxSubmit caps the number of URLs accepted in one submission.
const MaxSubmit = 50

// SubmitResult reports the outcome of queueing one URL. Job is nil
// when the URL was rejected.
type SubmitResult struct {
	URL   string `json:"url"`
	Job   *Job   `json:"job,omitempty"`
	Error string `json:"error,omitempty"`
}

// Manager runs jobs through the lifecycle. Processing is sequential:
// one job at a time, sharing the batch pipeline.
type Manager struct {
	store    Store
	catalog  catalog.Store
	pipeline *batch.Orchestrator
	profiles map[string]*config.SourceConfig
	metrics  *monitoring.Metrics
	logger   utils.Logger
}

// NewManager creates a job manager. profiles maps source names to
// their crawl profiles; metrics may be nil.
func NewManager(store Store, cat catalog.Store, pipeline *batch.Orchestrator, profiles map[string]*config.SourceConfig, metrics *monitoring.Metrics, logger utils.Logger) *Manager {
	if logger == nil {
		logger = utils.NopLogger{}
	}
	if profiles == nil {
		profiles = map[string]*config.SourceConfig{}
	}
	return &Manager{
		store:    store,
		catalog:  cat,
		pipeline: pipeline,
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
	}
}

// Profile returns the registered crawl profile for a source name.
func (m *Manager) Profile(name string) (*config.SourceConfig, bool) {
	p, ok := m.profiles[name]
	return p, ok
}

// Submit queues one job per URL. The whole submission is rejected for
// an unknown source or an oversized list; individual URLs are rejected
// (not fatally) when malformed or already active.
func (m *Manager) Submit(ctx context.Context, sourceName string, urls []string, categoryID string) ([]SubmitResult, error) {
	source, ok := m.profiles[sourceName]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", sourceName)
	}
	if len(urls) > MaxSubmit {
		return nil, fmt.Errorf("submission size %d exceeds the maximum of %d URLs", len(urls), MaxSubmit)
	}

	results := make([]SubmitResult, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		res := SubmitResult{URL: raw}
		normalized, err := urlutil.Normalize(raw)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.URL = normalized

		now := time.Now()
		job := &Job{
			ID:         primitive.NewObjectID().Hex(),
			URL:        normalized,
			SourceName: sourceName,
			Type:       source.Type,
			CategoryID: categoryID,
			State:      StateQueued,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := m.store.Insert(ctx, job); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.Job = job
		results = append(results, res)
	}

	m.publishStateGauges(ctx)
	return results, nil
}

// Get returns a job by ID.
func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

// Delete removes a job. A job that is processing right now cannot be
// deleted; every other state can.
func (m *Manager) Delete(ctx context.Context, id string) error {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.State == StateProcessing {
		return ErrJobProcessing
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.publishStateGauges(ctx)
	return nil
}

// ProcessQueued drains the queue, running each queued job through the
// crawl pipeline. It returns the number of jobs processed.
func (m *Manager) ProcessQueued(ctx context.Context) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		job, err := m.store.NextQueued(ctx)
		if errors.Is(err, ErrNotFound) {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}

		if err := m.processJob(ctx, job); err != nil {
			return processed, err
		}
		processed++
	}
}

// processJob runs one job through the pipeline and records the
// resulting state.
func (m *Manager) processJob(ctx context.Context, job *Job) error {
	job.State = StateProcessing
	job.UpdatedAt = time.Now()
	if err := m.store.Update(ctx, job); err != nil {
		return err
	}
	m.publishStateGauges(ctx)

	source, ok := m.profiles[job.SourceName]
	if !ok {
		job.State = StateFailed
		job.Error = fmt.Sprintf("unknown source %q", job.SourceName)
		job.UpdatedAt = time.Now()
		return m.store.Update(ctx, job)
	}

	opts := batch.Options{Source: source, CategoryID: job.CategoryID, Status: "draft"}
	if err := source.ValidateSelectors(); err != nil {
		job.State = StateFailed
		job.Error = err.Error()
		job.UpdatedAt = time.Now()
		return m.store.Update(ctx, job)
	}

	item, fields := m.pipeline.Process(ctx, job.URL, opts)

	job.Slug = item.Slug
	job.Title = item.Title
	job.UpdatedAt = time.Now()

	switch item.Outcome {
	case batch.OutcomeSuccess:
		job.State = StateSuccess
		job.RecordID = item.RecordID
	case batch.OutcomeDuplicate:
		job.State = StateDuplicate
		job.RecordID = item.RecordID
	case batch.OutcomeSlugConflict:
		// Park the extracted content so Approve can finish the import
		// without refetching.
		job.State = StatePendingReview
		job.Fields = fields
	default:
		job.State = StateFailed
		job.Error = item.Error
	}

	if err := m.store.Update(ctx, job); err != nil {
		return err
	}

	m.logger.WithField("job", job.ID).Infof("job %s for %s finished as %s", job.ID, job.URL, job.State)
	m.publishStateGauges(ctx)
	return nil
}

// Approve finishes a pending_review job: the slug conflict is resolved
// in suffix mode and the catalog record is created from the parked
// fields.
func (m *Manager) Approve(ctx context.Context, id string) (*Job, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State != StatePendingReview {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReviewable, id, job.State)
	}
	if job.Fields == nil {
		return nil, fmt.Errorf("job %s has no extracted content to approve", id)
	}

	resolved, err := slug.Unique(ctx, job.Title, m.slugExists(job.Type))
	if err != nil {
		return nil, err
	}

	fields := *job.Fields
	fields.Slug = resolved

	record, err := m.catalog.Create(ctx, job.Type, fields)
	if err != nil {
		return nil, err
	}

	job.State = StateSuccess
	job.Slug = resolved
	job.RecordID = record.ID
	job.Fields = nil
	job.UpdatedAt = time.Now()
	if err := m.store.Update(ctx, job); err != nil {
		return nil, err
	}

	m.logger.WithField("job", job.ID).Infof("approved job %s as %q (id=%d)", job.ID, resolved, record.ID)
	m.publishStateGauges(ctx)
	return job, nil
}

// publishStateGauges refreshes the per-state job gauges. Failures are
// ignored; metrics must never break the lifecycle.
func (m *Manager) publishStateGauges(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	counts, err := m.store.CountByState(ctx)
	if err != nil {
		return
	}
	for _, s := range States {
		m.metrics.SetJobsInState(string(s), counts[s])
	}
}

func (m *Manager) slugExists(typ config.CrawlType) slug.ExistsFunc {
	return func(ctx context.Context, s string) (bool, error) {
		_, err := m.catalog.FindBySlug(ctx, s, typ)
		if errors.Is(err, catalog.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
}
