package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
)

// PairTrainer trains one (store, product) pair. Satisfied by the service
// engine.
type PairTrainer interface {
	TrainPair(ctx context.Context, storeID, productID string) (*domain.ForecastModel, error)
}

// Orchestrator runs batch training across the assortment with a worker
// pool. Failures are isolated per pair: one pair with bad history never
// stops the rest of the run.
type Orchestrator struct {
	cfg     Config
	trainer PairTrainer
	history repository.HistoryRepository
	store   RunStore
	now     func() time.Time
	log     zerolog.Logger
}

func NewOrchestrator(cfg Config, trainer PairTrainer, history repository.HistoryRepository, store RunStore) *Orchestrator {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		cfg:     cfg,
		trainer: trainer,
		history: history,
		store:   store,
		now:     time.Now,
		log:     log.With().Str("component", "batch_orchestrator").Logger(),
	}
}

// Run trains every pair with history and returns the completed run
// record. The run fails only on infrastructure errors; per-pair training
// errors are recorded on their jobs and counted.
func (o *Orchestrator) Run(ctx context.Context) (*TrainingRun, error) {
	pairs, err := o.history.ListPairs(ctx)
	if err != nil {
		return nil, err
	}

	run := &TrainingRun{
		Status:     RunPending,
		TotalPairs: len(pairs),
		StartedAt:  o.now(),
	}
	if err := o.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	jobs := make([]*TrainingJob, 0, len(pairs))
	for _, pair := range pairs {
		job := &TrainingJob{
			RunID:     run.ID,
			StoreID:   pair.StoreID,
			ProductID: pair.ProductID,
			Status:    JobQueued,
		}
		if err := o.store.CreateJob(ctx, job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	run.Status = RunProcessing
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return nil, err
	}

	o.log.Info().
		Int64("run_id", run.ID).
		Int("pairs", len(pairs)).
		Int("workers", o.cfg.WorkerCount).
		Msg("batch training started")

	o.processJobs(ctx, jobs)
	return o.finalizeRun(ctx, run)
}

// Resume re-processes the queued and failed jobs of an interrupted run.
// Completed and skipped jobs keep their results.
func (o *Orchestrator) Resume(ctx context.Context, runID int64) (*TrainingRun, error) {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	queued, err := o.store.ListJobs(ctx, runID, JobQueued)
	if err != nil {
		return nil, err
	}
	failed, err := o.store.ListJobs(ctx, runID, JobFailed)
	if err != nil {
		return nil, err
	}
	pending := append(queued, failed...)

	if len(pending) == 0 {
		return o.finalizeRun(ctx, run)
	}

	run.Status = RunProcessing
	run.CompletedAt = nil
	run.ErrorMessage = ""
	if err := o.store.UpdateRun(ctx, run); err != nil {
		return nil, err
	}

	o.log.Info().
		Int64("run_id", run.ID).
		Int("pending_jobs", len(pending)).
		Msg("batch training resumed")

	o.processJobs(ctx, pending)
	return o.finalizeRun(ctx, run)
}

// RetryFailed retries failed jobs across runs that still have retry
// budget, backing off between attempts.
func (o *Orchestrator) RetryFailed(ctx context.Context) error {
	jobs, err := o.store.FailedJobs(ctx, o.cfg.RetryAttempts)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		o.log.Info().Msg("no failed training jobs to retry")
		return nil
	}

	o.log.Info().Int("jobs", len(jobs)).Msg("retrying failed training jobs")

	byRun := make(map[int64][]*TrainingJob)
	for _, job := range jobs {
		byRun[job.RunID] = append(byRun[job.RunID], job)
	}

	for runID, runJobs := range byRun {
		run, err := o.store.GetRun(ctx, runID)
		if err != nil {
			o.log.Error().Err(err).Int64("run_id", runID).Msg("could not load run for retry")
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.RetryBackoff):
		}

		o.processJobs(ctx, runJobs)
		if _, err := o.finalizeRun(ctx, run); err != nil {
			o.log.Error().Err(err).Int64("run_id", runID).Msg("could not finalize run after retry")
		}
	}
	return nil
}

func (o *Orchestrator) processJobs(ctx context.Context, jobs []*TrainingJob) {
	jobChan := make(chan *TrainingJob, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < o.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				o.processJob(ctx, job)
			}
		}()
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return
		case jobChan <- job:
		}
	}
	close(jobChan)
	wg.Wait()
}

func (o *Orchestrator) processJob(ctx context.Context, job *TrainingJob) {
	// A cancelled run leaves the job queued so Resume picks it up instead
	// of burning its retry budget on a doomed training attempt.
	if ctx.Err() != nil {
		return
	}

	job.Status = JobProcessing
	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.log.Error().Err(err).Int64("job_id", job.ID).Msg("could not mark job processing")
		return
	}

	model, err := o.trainer.TrainPair(ctx, job.StoreID, job.ProductID)
	touch(job, o.now())

	switch {
	case err == nil:
		job.Status = JobCompleted
		job.ModelVersion = model.ModelVersion
		job.ErrorMessage = ""
	case isInsufficientHistory(err):
		job.Status = JobSkipped
		job.ErrorMessage = err.Error()
		o.log.Debug().
			Str("store_id", job.StoreID).
			Str("product_id", job.ProductID).
			Msg("pair skipped: insufficient history")
	default:
		job.Status = JobFailed
		job.ErrorMessage = err.Error()
		job.RetryCount++
		o.log.Error().Err(err).
			Str("store_id", job.StoreID).
			Str("product_id", job.ProductID).
			Int("retry_count", job.RetryCount).
			Msg("pair training failed")
	}

	if err := o.store.UpdateJob(ctx, job); err != nil {
		o.log.Error().Err(err).Int64("job_id", job.ID).Msg("could not update job")
	}
}

func (o *Orchestrator) finalizeRun(ctx context.Context, run *TrainingRun) (*TrainingRun, error) {
	all, err := o.store.ListJobs(ctx, run.ID, "")
	if err != nil {
		return nil, err
	}

	var trained, skipped, failed, pending int
	for _, job := range all {
		switch job.Status {
		case JobCompleted:
			trained++
		case JobSkipped:
			skipped++
		case JobFailed:
			failed++
		default:
			pending++
		}
	}

	run.TrainedPairs = trained
	run.SkippedPairs = skipped
	run.FailedPairs = failed

	if pending == 0 {
		now := o.now()
		run.CompletedAt = &now
		if failed > 0 {
			run.Status = RunFailed
		} else {
			run.Status = RunCompleted
		}
	}

	if err := o.store.UpdateRun(ctx, run); err != nil {
		return nil, err
	}

	o.log.Info().
		Int64("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("trained", trained).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("batch training finished")
	return run, nil
}

func isInsufficientHistory(err error) bool {
	var ih *domain.InsufficientHistoryError
	return errors.As(err, &ih)
}
