// Package crawl coordinates asynchronous range crawls: discovery of
// meeting ids over a date range, chunked upstream listing, sequential
// ingest of each discovered meeting, and in-memory job tracking. Job
// state is process-local and does not survive a restart.
package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicwatch/civicwatch/pkg/civicweb"
	cwerrors "github.com/civicwatch/civicwatch/pkg/errors"
	"github.com/civicwatch/civicwatch/pkg/ingest"
	"github.com/civicwatch/civicwatch/pkg/logging"
)

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const dateLayout = "2006-01-02"

// maxTrackedJobs caps the in-memory job table; the oldest terminal jobs
// are evicted past it.
const maxTrackedJobs = 50

// Config holds the coordinator's admission-control limits.
type Config struct {
	// MaxRangeDays is the widest accepted from/to span, inclusive.
	MaxRangeDays int
	// Cooldown is the minimum gap between job submissions.
	Cooldown time.Duration
	// ChunkDays bounds one upstream listing request.
	ChunkDays int
	// Limit caps how many discovered meetings one job ingests.
	Limit int
}

// DefaultConfig mirrors the deployed limits.
func DefaultConfig() Config {
	return Config{
		MaxRangeDays: 180,
		Cooldown:     10 * time.Second,
		ChunkDays:    31,
		Limit:        50,
	}
}

// Ingester runs one meeting through the ingest pipeline.
type Ingester interface {
	IngestMeeting(ctx context.Context, meetingID int64) (*ingest.Result, error)
}

// Discoverer lists meetings in a date range.
type Discoverer interface {
	ListMeetings(ctx context.Context, from, to string) ([]civicweb.MeetingSummary, []byte, error)
}

// Publisher emits crawl job events. May be nil.
type Publisher interface {
	CrawlJobProgress(ctx context.Context, event ingest.CrawlJobProgressEvent)
	CrawlJobCompleted(ctx context.Context, event ingest.CrawlJobCompletedEvent)
}

// Job is the polling view of one crawl job.
type Job struct {
	ID               string    `json:"job_id"`
	Status           string    `json:"status"`
	FromDate         string    `json:"from_date"`
	ToDate           string    `json:"to_date"`
	Discovered       int       `json:"discovered"`
	Processed        int       `json:"processed"`
	CurrentMeetingID int64     `json:"current_meeting_id,omitempty"`
	Errors           []string  `json:"errors,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type jobState struct {
	Job
	cancelRequested bool
}

// Coordinator owns the in-memory job table and runs at most one crawl at
// a time. Pollers read snapshots; only the execution goroutine mutates a
// running job.
type Coordinator struct {
	cfg        Config
	ingester   Ingester
	discoverer Discoverer
	events     Publisher
	logger     logging.Logger

	mu    sync.Mutex
	jobs  map[string]*jobState
	order []string
	now   func() time.Time
}

// NewCoordinator creates a crawl coordinator. events may be nil.
func NewCoordinator(ingester Ingester, discoverer Discoverer, cfg Config, events Publisher, logger logging.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		ingester:   ingester,
		discoverer: discoverer,
		events:     events,
		logger:     logger.With(logging.F("component", "crawl_coordinator")),
		jobs:       make(map[string]*jobState),
		now:        time.Now,
	}
}

// Submit validates and admits a new crawl job, returning its id. The job
// executes in the background; progress is observed via Status. Fails
// with ErrValidation on a malformed range, ErrRangeTooWide past the
// configured span, and ErrThrottled while another job is active or the
// cooldown since the last submission has not elapsed. A rejected
// submission mutates nothing.
func (c *Coordinator) Submit(ctx context.Context, fromDate, toDate string) (string, error) {
	from, err := time.Parse(dateLayout, fromDate)
	if err != nil {
		return "", fmt.Errorf("invalid from date %q: %w", fromDate, cwerrors.ErrValidation)
	}
	to, err := time.Parse(dateLayout, toDate)
	if err != nil {
		return "", fmt.Errorf("invalid to date %q: %w", toDate, cwerrors.ErrValidation)
	}
	if to.Before(from) {
		return "", fmt.Errorf("to date must be on or after from date: %w", cwerrors.ErrValidation)
	}
	span := int(to.Sub(from).Hours()/24) + 1
	if span > c.cfg.MaxRangeDays {
		return "", fmt.Errorf("range spans %d days, maximum is %d: %w",
			span, c.cfg.MaxRangeDays, cwerrors.ErrRangeTooWide)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		job := c.jobs[id]
		if job.Status == StatusPending || job.Status == StatusRunning {
			return "", fmt.Errorf("job %s is active: %w", job.ID, cwerrors.ErrThrottled)
		}
	}
	if last := c.lastCreatedLocked(); !last.IsZero() {
		if wait := c.cfg.Cooldown - c.now().Sub(last); wait > 0 {
			return "", fmt.Errorf("cooldown active for %s: %w",
				wait.Round(time.Second), cwerrors.ErrThrottled)
		}
	}

	job := &jobState{
		Job: Job{
			ID:        uuid.NewString(),
			Status:    StatusPending,
			FromDate:  fromDate,
			ToDate:    toDate,
			CreatedAt: c.now(),
			UpdatedAt: c.now(),
		},
	}
	c.jobs[job.ID] = job
	c.order = append(c.order, job.ID)
	c.evictLocked()

	go c.run(job.ID, from, to)
	return job.ID, nil
}

// Status returns a snapshot of a job. Unknown or evicted ids fail with
// ErrNotFound; callers must tolerate job state disappearing.
func (c *Coordinator) Status(jobID string) (Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", jobID, cwerrors.ErrNotFound)
	}
	return c.snapshotLocked(job), nil
}

// Cancel requests cooperative cancellation. The execution loop honors it
// between meetings; a meeting already in flight completes first.
func (c *Coordinator) Cancel(jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, cwerrors.ErrNotFound)
	}
	switch job.Status {
	case StatusPending, StatusRunning:
		job.cancelRequested = true
		job.UpdatedAt = c.now()
	}
	return nil
}

func (c *Coordinator) snapshotLocked(job *jobState) Job {
	out := job.Job
	out.Errors = append([]string(nil), job.Errors...)
	return out
}

func (c *Coordinator) lastCreatedLocked() time.Time {
	var last time.Time
	for _, id := range c.order {
		if created := c.jobs[id].CreatedAt; created.After(last) {
			last = created
		}
	}
	return last
}

// evictLocked drops the oldest terminal jobs past the cap. Active jobs
// are never evicted.
func (c *Coordinator) evictLocked() {
	if len(c.order) <= maxTrackedJobs {
		return
	}
	kept := c.order[:0]
	excess := len(c.order) - maxTrackedJobs
	for _, id := range c.order {
		job := c.jobs[id]
		terminal := job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled
		if excess > 0 && terminal {
			delete(c.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
}

func (c *Coordinator) run(jobID string, from, to time.Time) {
	ctx := context.Background()
	started := c.now()

	c.update(jobID, func(job *jobState) {
		job.Status = StatusRunning
	})

	ids, err := c.discover(ctx, jobID, from, to)
	if err != nil {
		c.update(jobID, func(job *jobState) {
			job.Status = StatusFailed
			job.Errors = append(job.Errors, fmt.Sprintf("discovery: %v", err))
		})
		c.finish(ctx, jobID, started)
		return
	}

	c.update(jobID, func(job *jobState) {
		job.Discovered = len(ids)
	})

	for _, meetingID := range ids {
		if c.cancelled(jobID) {
			c.update(jobID, func(job *jobState) {
				job.Status = StatusCancelled
			})
			c.finish(ctx, jobID, started)
			return
		}

		c.update(jobID, func(job *jobState) {
			job.CurrentMeetingID = meetingID
		})

		if _, err := c.ingester.IngestMeeting(ctx, meetingID); err != nil {
			c.update(jobID, func(job *jobState) {
				job.Errors = append(job.Errors, fmt.Sprintf("meeting %d: %v", meetingID, err))
			})
			c.logger.Warn("meeting ingest failed during crawl",
				logging.F("job_id", jobID),
				logging.F("meeting_id", meetingID),
				logging.Err(err))
		}

		c.update(jobID, func(job *jobState) {
			job.Processed++
		})
		c.publishProgress(ctx, jobID)
	}

	c.update(jobID, func(job *jobState) {
		job.Status = StatusCompleted
	})
	c.finish(ctx, jobID, started)
}

// discover lists the full range in chunks no wider than ChunkDays,
// deduplicates ids preserving discovery order, and applies the job
// limit.
func (c *Coordinator) discover(ctx context.Context, jobID string, from, to time.Time) ([]int64, error) {
	var (
		ids  []int64
		seen = make(map[int64]bool)
	)
	for _, window := range chunkWindows(from, to, c.cfg.ChunkDays) {
		summaries, _, err := c.discoverer.ListMeetings(ctx, window[0], window[1])
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			if s.ID == 0 || seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	if c.cfg.Limit > 0 && len(ids) > c.cfg.Limit {
		ids = ids[:c.cfg.Limit]
	}
	c.logger.Info("crawl discovery finished",
		logging.F("job_id", jobID),
		logging.F("discovered", len(ids)))
	return ids, nil
}

// chunkWindows splits an inclusive date range into consecutive inclusive
// sub-ranges of at most chunkDays days.
func chunkWindows(from, to time.Time, chunkDays int) [][2]string {
	if chunkDays < 1 {
		chunkDays = 1
	}
	var out [][2]string
	for start := from; !start.After(to); {
		end := start.AddDate(0, 0, chunkDays-1)
		if end.After(to) {
			end = to
		}
		out = append(out, [2]string{start.Format(dateLayout), end.Format(dateLayout)})
		start = end.AddDate(0, 0, 1)
	}
	return out
}

func (c *Coordinator) cancelled(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	return ok && job.cancelRequested
}

func (c *Coordinator) update(jobID string, fn func(job *jobState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[jobID]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = c.now()
}

func (c *Coordinator) publishProgress(ctx context.Context, jobID string) {
	if c.events == nil {
		return
	}
	snapshot, err := c.Status(jobID)
	if err != nil {
		return
	}
	c.events.CrawlJobProgress(ctx, ingest.CrawlJobProgressEvent{
		JobID:            snapshot.ID,
		Status:           snapshot.Status,
		Discovered:       snapshot.Discovered,
		Processed:        snapshot.Processed,
		CurrentMeetingID: snapshot.CurrentMeetingID,
	})
}

func (c *Coordinator) finish(ctx context.Context, jobID string, started time.Time) {
	snapshot, err := c.Status(jobID)
	if err != nil {
		return
	}
	c.logger.Info("crawl job finished",
		logging.F("job_id", jobID),
		logging.F("status", snapshot.Status),
		logging.F("discovered", snapshot.Discovered),
		logging.F("processed", snapshot.Processed),
		logging.F("errors", len(snapshot.Errors)))
	if c.events == nil {
		return
	}
	c.events.CrawlJobCompleted(ctx, ingest.CrawlJobCompletedEvent{
		JobID:      snapshot.ID,
		Status:     snapshot.Status,
		FromDate:   snapshot.FromDate,
		ToDate:     snapshot.ToDate,
		Discovered: snapshot.Discovered,
		Processed:  snapshot.Processed,
		ErrorCount: len(snapshot.Errors),
		Duration:   c.now().Sub(started).Seconds(),
	})
}
