package batch

import (
	"time"
)

// RunStatus is the state of a batch training run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// JobStatus is the state of a single pair-training job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobSkipped    JobStatus = "skipped"
	JobFailed     JobStatus = "failed"
)

// TrainingRun tracks one execution of batch training across the
// assortment. Runs are resumable: jobs completed in a prior attempt are
// not retrained.
type TrainingRun struct {
	ID           int64      `db:"id"`
	Status       RunStatus  `db:"status"`
	TotalPairs   int        `db:"total_pairs"`
	TrainedPairs int        `db:"trained_pairs"`
	SkippedPairs int        `db:"skipped_pairs"`
	FailedPairs  int        `db:"failed_pairs"`
	StartedAt    time.Time  `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	ErrorMessage string     `db:"error_message"`
}

// TrainingJob tracks training of a single (store, product) pair within a
// run. A pair with insufficient history is skipped, not failed: skipping
// is the expected outcome for new products and must not poison the run.
type TrainingJob struct {
	ID           int64      `db:"id"`
	RunID        int64      `db:"run_id"`
	StoreID      string     `db:"store_id"`
	ProductID    string     `db:"product_id"`
	Status       JobStatus  `db:"status"`
	ModelVersion int        `db:"model_version"`
	ErrorMessage string     `db:"error_message"`
	RetryCount   int        `db:"retry_count"`
	ProcessedAt  *time.Time `db:"processed_at"`
}

// Config holds the orchestrator's tunables.
type Config struct {
	WorkerCount   int
	RetryAttempts int
	RetryBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  30 * time.Second,
	}
}
