package batch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunStore persists training runs and their jobs.
type RunStore interface {
	CreateRun(ctx context.Context, run *TrainingRun) error
	UpdateRun(ctx context.Context, run *TrainingRun) error
	GetRun(ctx context.Context, id int64) (*TrainingRun, error)

	CreateJob(ctx context.Context, job *TrainingJob) error
	UpdateJob(ctx context.Context, job *TrainingJob) error
	// ListJobs returns a run's jobs filtered by status; an empty status
	// returns all of them.
	ListJobs(ctx context.Context, runID int64, status JobStatus) ([]*TrainingJob, error)
	// FailedJobs returns failed jobs across runs with retries remaining.
	FailedJobs(ctx context.Context, maxRetries int) ([]*TrainingJob, error)
}

// MemoryRunStore is the in-memory RunStore used by tests and single-shot
// CLI runs that do not need resumability across processes.
type MemoryRunStore struct {
	mu      sync.Mutex
	nextRun int64
	nextJob int64
	runs    map[int64]*TrainingRun
	jobs    map[int64]*TrainingJob
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		nextRun: 1,
		nextJob: 1,
		runs:    make(map[int64]*TrainingRun),
		jobs:    make(map[int64]*TrainingJob),
	}
}

func (s *MemoryRunStore) CreateRun(_ context.Context, run *TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = s.nextRun
	s.nextRun++
	stored := *run
	s.runs[stored.ID] = &stored
	return nil
}

func (s *MemoryRunStore) UpdateRun(_ context.Context, run *TrainingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("training run %d not found", run.ID)
	}
	stored := *run
	s.runs[run.ID] = &stored
	return nil
}

func (s *MemoryRunStore) GetRun(_ context.Context, id int64) (*TrainingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("training run %d not found", id)
	}
	out := *run
	return &out, nil
}

func (s *MemoryRunStore) CreateJob(_ context.Context, job *TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = s.nextJob
	s.nextJob++
	stored := *job
	s.jobs[stored.ID] = &stored
	return nil
}

func (s *MemoryRunStore) UpdateJob(_ context.Context, job *TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("training job %d not found", job.ID)
	}
	stored := *job
	s.jobs[job.ID] = &stored
	return nil
}

func (s *MemoryRunStore) ListJobs(_ context.Context, runID int64, status JobStatus) ([]*TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*TrainingJob
	for _, job := range s.jobs {
		if job.RunID != runID {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		j := *job
		out = append(out, &j)
	}
	return out, nil
}

func (s *MemoryRunStore) FailedJobs(_ context.Context, maxRetries int) ([]*TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*TrainingJob
	for _, job := range s.jobs {
		if job.Status == JobFailed && job.RetryCount < maxRetries {
			j := *job
			out = append(out, &j)
		}
	}
	return out, nil
}

// touch is shared by store implementations to stamp job completion.
func touch(job *TrainingJob, at time.Time) {
	t := at
	job.ProcessedAt = &t
}
