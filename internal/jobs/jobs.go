// internal/jobs/jobs.go

// Package jobs tracks single-URL crawl jobs through their lifecycle.
// A job is the reviewable unit of crawling: it remembers why an import
// stopped (failure, duplicate, slug conflict) and carries enough
// extracted state for an operator to approve a conflicting item later
// without refetching the page.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jonathanvirgo/site-blog-sub002/internal/catalog"
	"github.com/jonathanvirgo/site-blog-sub002/internal/config"
)

// State is a job lifecycle state.
type State string

const (
	StateQueued        State = "queued"
	StateProcessing    State = "processing"
	StateSuccess       State = "success"
	StateFailed        State = "failed"
	StateDuplicate     State = "duplicate"
	StatePendingReview State = "pending_review"
)

// States lists every lifecycle state, used to reset gauges.
var States = []State{
	StateQueued, StateProcessing, StateSuccess,
	StateFailed, StateDuplicate, StatePendingReview,
}

// Terminal reports whether the state accepts no further processing.
// pending_review is not terminal: Approve moves it to success.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateDuplicate
}

var (
	// ErrNotFound is returned when no job has the requested ID.
	ErrNotFound = errors.New("job not found")

	// ErrJobProcessing is returned when deleting a job that is being
	// processed right now.
	ErrJobProcessing = errors.New("job is currently processing")

	// ErrURLActive is returned when submitting a URL that already has
	// a job in any non-failed state. Failed jobs do not block
	// resubmission.
	ErrURLActive = errors.New("url already has an active job")

	// ErrNotReviewable is returned by Approve on a job that is not in
	// pending_review.
	ErrNotReviewable = errors.New("job is not pending review")
)

// Job is one URL moving through the crawl lifecycle.
type Job struct {
	ID         string           `bson:"_id" json:"id"`
	URL        string           `bson:"url" json:"url"`
	SourceName string           `bson:"source_name" json:"source_name"`
	Type       config.CrawlType `bson:"record_type" json:"type"`
	CategoryID string           `bson:"category_id" json:"category_id,omitempty"`
	State      State            `bson:"state" json:"state"`

	// Error holds the failure reason when State is failed.
	Error string `bson:"error,omitempty" json:"error,omitempty"`

	// RecordID points at the catalog record for success and duplicate
	// states.
	RecordID int64  `bson:"record_id,omitempty" json:"record_id,omitempty"`
	Slug     string `bson:"slug,omitempty" json:"slug,omitempty"`
	Title    string `bson:"title,omitempty" json:"title,omitempty"`

	// Fields preserves the extracted content for pending_review so
	// Approve can create the catalog record without another fetch.
	Fields *catalog.Fields `bson:"fields,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Store persists jobs. Insert must enforce URL uniqueness among
// non-failed jobs.
type Store interface {
	Insert(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id string) error
	NextQueued(ctx context.Context) (*Job, error)
	CountByState(ctx context.Context) (map[State]int, error)
}
