package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/retailinventory/forecast-engine/internal/repository/postgres"
)

// PostgresRunStore persists runs and jobs so an interrupted batch can be
// resumed by a later process.
type PostgresRunStore struct {
	db *postgres.DB
}

func NewPostgresRunStore(db *postgres.DB) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

func (s *PostgresRunStore) CreateRun(ctx context.Context, run *TrainingRun) error {
	query := `
		INSERT INTO training_runs (status, total_pairs, trained_pairs, skipped_pairs, failed_pairs, started_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if err := s.db.QueryRowxContext(ctx, query,
		run.Status, run.TotalPairs, run.TrainedPairs, run.SkippedPairs, run.FailedPairs,
		run.StartedAt, run.ErrorMessage,
	).Scan(&run.ID); err != nil {
		return fmt.Errorf("could not create training run: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) UpdateRun(ctx context.Context, run *TrainingRun) error {
	query := `
		UPDATE training_runs
		SET status = $2, total_pairs = $3, trained_pairs = $4, skipped_pairs = $5,
		    failed_pairs = $6, completed_at = $7, error_message = $8
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query,
		run.ID, run.Status, run.TotalPairs, run.TrainedPairs, run.SkippedPairs,
		run.FailedPairs, run.CompletedAt, run.ErrorMessage,
	); err != nil {
		return fmt.Errorf("could not update training run %d: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresRunStore) GetRun(ctx context.Context, id int64) (*TrainingRun, error) {
	query := `
		SELECT id, status, total_pairs, trained_pairs, skipped_pairs, failed_pairs,
		       started_at, completed_at, error_message
		FROM training_runs
		WHERE id = $1`

	var run TrainingRun
	if err := s.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("training run %d not found", id)
		}
		return nil, fmt.Errorf("could not load training run %d: %w", id, err)
	}
	return &run, nil
}

func (s *PostgresRunStore) CreateJob(ctx context.Context, job *TrainingJob) error {
	query := `
		INSERT INTO training_jobs (run_id, store_id, product_id, status, model_version, error_message, retry_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if err := s.db.QueryRowxContext(ctx, query,
		job.RunID, job.StoreID, job.ProductID, job.Status,
		job.ModelVersion, job.ErrorMessage, job.RetryCount,
	).Scan(&job.ID); err != nil {
		return fmt.Errorf("could not create training job: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) UpdateJob(ctx context.Context, job *TrainingJob) error {
	query := `
		UPDATE training_jobs
		SET status = $2, model_version = $3, error_message = $4, retry_count = $5, processed_at = $6
		WHERE id = $1`

	if _, err := s.db.ExecContext(ctx, query,
		job.ID, job.Status, job.ModelVersion, job.ErrorMessage, job.RetryCount, job.ProcessedAt,
	); err != nil {
		return fmt.Errorf("could not update training job %d: %w", job.ID, err)
	}
	return nil
}

func (s *PostgresRunStore) ListJobs(ctx context.Context, runID int64, status JobStatus) ([]*TrainingJob, error) {
	query := `
		SELECT id, run_id, store_id, product_id, status, model_version,
		       error_message, retry_count, processed_at
		FROM training_jobs
		WHERE run_id = $1`
	args := []interface{}{runID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	var jobs []*TrainingJob
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("could not list training jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresRunStore) FailedJobs(ctx context.Context, maxRetries int) ([]*TrainingJob, error) {
	query := `
		SELECT id, run_id, store_id, product_id, status, model_version,
		       error_message, retry_count, processed_at
		FROM training_jobs
		WHERE status = 'failed' AND retry_count < $1
		ORDER BY id`

	var jobs []*TrainingJob
	if err := s.db.SelectContext(ctx, &jobs, query, maxRetries); err != nil {
		return nil, fmt.Errorf("could not list failed training jobs: %w", err)
	}
	return jobs, nil
}
