package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is an asynchronous import. Values returned by JobStore are
// snapshots; they do not change after being returned.
type Job struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Status      JobStatus  `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	Progress    int        `json:"progress"` // 0-100
	Report      *Report    `json:"report,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type jobEntry struct {
	job    Job
	cancel context.CancelFunc
}

// RunFunc performs the work of a job, reporting progress as it goes.
type RunFunc func(ctx context.Context, progress Progress) (*Report, error)

// JobStore tracks import jobs in memory. OnUpdate, when set before jobs
// are started, is called with a snapshot after every state change.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[string]*jobEntry
	wg       sync.WaitGroup
	OnUpdate func(Job)
	now      func() time.Time
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*jobEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Start registers a job for source and runs fn in a new goroutine. The
// job's context derives from parent and is cancelled by Cancel.
func (s *JobStore) Start(parent context.Context, source string, fn RunFunc) Job {
	ctx, cancel := context.WithCancel(parent)
	now := s.now()

	entry := &jobEntry{
		job: Job{
			ID:        uuid.New().String(),
			Source:    source,
			Status:    JobStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.jobs[entry.job.ID] = entry
	snapshot := entry.job
	s.mu.Unlock()
	s.notify(snapshot)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, entry.job.ID, fn)
	}()

	return snapshot
}

func (s *JobStore) run(ctx context.Context, id string, fn RunFunc) {
	s.update(id, func(j *Job) { j.Status = JobStatusRunning })

	report, err := fn(ctx, func(stage string, done, total int) {
		s.update(id, func(j *Job) {
			j.Stage = stage
			j.Progress = percent(stage, done, total)
		})
	})

	s.update(id, func(j *Job) {
		if j.Status == JobStatusCancelled {
			return
		}
		j.Report = report
		switch {
		case err == nil:
			j.Status = JobStatusCompleted
			j.Stage = StageDone
			j.Progress = 100
		case errors.Is(err, context.Canceled):
			j.Status = JobStatusCancelled
			j.Error = "job cancelled"
		default:
			j.Status = JobStatusFailed
			j.Error = err.Error()
		}
	})
}

// percent maps stage progress onto 0-100: validation is the first tenth,
// insertion the rest.
func percent(stage string, done, total int) int {
	if total <= 0 {
		total = 1
	}
	frac := min(done, total) * 100 / total
	switch stage {
	case StageValidate:
		return frac / 10
	case StageInsert:
		return 10 + frac*9/10
	case StageDone:
		return 100
	}
	return 0
}

func (s *JobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	wasDone := entry.job.Status.Done()
	fn(&entry.job)
	now := s.now()
	entry.job.UpdatedAt = now
	if !wasDone && entry.job.Status.Done() {
		entry.job.CompletedAt = &now
	}
	snapshot := entry.job
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *JobStore) notify(j Job) {
	if s.OnUpdate != nil {
		s.OnUpdate(j)
	}
}

// Get returns a snapshot of the job with id.
func (s *JobStore) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return Job{}, errors.NewNotFound("job", id)
	}
	return entry.job, nil
}

// List returns snapshots of every job, newest first.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job)
	}
	sortJobs(jobs)
	return jobs
}

func sortJobs(jobs []Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}

// Cancel stops a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	var status JobStatus
	if ok {
		status = entry.job.Status
	}
	s.mu.RUnlock()

	if !ok {
		return errors.NewNotFound("job", id)
	}
	if status.Done() {
		return &errors.ValidationError{Field: "status", Value: string(status), Message: "job cannot be cancelled"}
	}

	entry.cancel()
	s.update(id, func(j *Job) {
		j.Status = JobStatusCancelled
		j.Error = "job cancelled"
	})
	return nil
}

// Wait blocks until every started job has finished.
func (s *JobStore) Wait() {
	s.wg.Wait()
}
