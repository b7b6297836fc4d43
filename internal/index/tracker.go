package index

import (
	"errors"
	"sync"
	"time"
)

// ErrIngestion marks a job that reached the terminal failed state. It
// never crashes the tracker; only that job is marked.
var ErrIngestion = errors.New("ingestion failed")

// Status is the lifecycle state of one ingestion job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusNotFound is reported when polling a source id that was
	// never ingested. It is not a job state.
	StatusNotFound Status = "not_found"
)

// Job tracks background ingestion for one source id. Mutated only by
// the ingestion worker through the tracker.
type Job struct {
	SourceID    string    `json:"source_id"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	TotalChunks int       `json:"total_chunks,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	EndedAt     time.Time `json:"ended_at,omitempty"`

	// Attempt distinguishes retries of the same source id. A retry
	// after failure must never share a pipeline run with the attempt
	// it replaces.
	Attempt int `json:"-"`
}

// Terminal reports whether the job can no longer change state.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Tracker is the per-source job state machine:
// queued -> running -> completed | failed. One job per source id.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]*Job)}
}

// Begin claims a source id for ingestion. It returns false when a job
// already exists that makes a new run unnecessary: a completed job
// (idempotent re-ingest) or one still queued or running. A failed job
// may be retried and is replaced.
func (t *Tracker) Begin(sourceID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempt := 1
	if existing, ok := t.jobs[sourceID]; ok {
		if existing.Status != StatusFailed {
			return *existing, false
		}
		attempt = existing.Attempt + 1
	}
	job := &Job{
		SourceID:  sourceID,
		Status:    StatusQueued,
		StartedAt: time.Now(),
		Attempt:   attempt,
	}
	t.jobs[sourceID] = job
	return *job, true
}

// Start moves a queued job to running.
func (t *Tracker) Start(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if job, ok := t.jobs[sourceID]; ok && job.Status == StatusQueued {
		job.Status = StatusRunning
	}
}

// SetProgress updates a running job's progress. Progress never moves
// backwards within a job.
func (t *Tracker) SetProgress(sourceID string, progress int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[sourceID]
	if !ok || job.Terminal() {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > job.Progress {
		job.Progress = progress
	}
}

// Complete marks a job done with its final chunk count.
func (t *Tracker) Complete(sourceID string, totalChunks int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[sourceID]
	if !ok || job.Terminal() {
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.TotalChunks = totalChunks
	job.EndedAt = time.Now()
}

// Fail marks a job terminally failed.
func (t *Tracker) Fail(sourceID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[sourceID]
	if !ok || job.Terminal() {
		return
	}
	job.Status = StatusFailed
	job.Error = err.Error()
	job.EndedAt = time.Now()
}

// Poll returns the current job snapshot. Unknown source ids report
// not_found rather than an error.
func (t *Tracker) Poll(sourceID string) Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if job, ok := t.jobs[sourceID]; ok {
		return *job
	}
	return Job{SourceID: sourceID, Status: StatusNotFound}
}
