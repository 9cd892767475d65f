package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository/memory"
)

// stubTrainer returns a canned outcome per pair and counts calls. Setting
// a nil error makes the pair succeed with an incrementing model version.
type stubTrainer struct {
	mu      sync.Mutex
	results map[string]error
	calls   map[string]int
	onTrain func(storeID, productID string)
}

func newStubTrainer() *stubTrainer {
	return &stubTrainer{
		results: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (s *stubTrainer) set(storeID, productID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[storeID+"|"+productID] = err
}

func (s *stubTrainer) callCount(storeID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[storeID+"|"+productID]
}

func (s *stubTrainer) TrainPair(_ context.Context, storeID, productID string) (*domain.ForecastModel, error) {
	if s.onTrain != nil {
		s.onTrain(storeID, productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeID + "|" + productID
	s.calls[key]++
	if err := s.results[key]; err != nil {
		return nil, err
	}
	return &domain.ForecastModel{
		StoreID:      storeID,
		ProductID:    productID,
		ModelVersion: s.calls[key],
	}, nil
}

func seedPairs(history *memory.HistoryRepository, productIDs ...string) {
	for _, productID := range productIDs {
		history.Append(domain.DemandObservation{
			StoreID:      "s1",
			ProductID:    productID,
			Date:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			QuantitySold: 1,
		})
	}
}

func testBatchConfig() Config {
	return Config{WorkerCount: 2, RetryAttempts: 3, RetryBackoff: time.Millisecond}
}

func jobByProduct(t *testing.T, store RunStore, runID int64, productID string) *TrainingJob {
	t.Helper()
	jobs, err := store.ListJobs(context.Background(), runID, "")
	require.NoError(t, err)
	for _, job := range jobs {
		if job.ProductID == productID {
			return job
		}
	}
	t.Fatalf("no job for product %s in run %d", productID, runID)
	return nil
}

func TestRunIsolatesPairFailures(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "ok", "thin", "broken")

	trainer := newStubTrainer()
	trainer.set("s1", "thin", &domain.InsufficientHistoryError{StoreID: "s1", ProductID: "thin", Have: 12, Need: 60})
	trainer.set("s1", "broken", errors.New("degenerate history"))

	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), trainer, history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunFailed, run.Status, "a failed pair marks the run failed")
	assert.Equal(t, 3, run.TotalPairs)
	assert.Equal(t, 1, run.TrainedPairs)
	assert.Equal(t, 1, run.SkippedPairs)
	assert.Equal(t, 1, run.FailedPairs)
	require.NotNil(t, run.CompletedAt)

	ok := jobByProduct(t, store, run.ID, "ok")
	assert.Equal(t, JobCompleted, ok.Status)
	assert.Equal(t, 1, ok.ModelVersion)
	require.NotNil(t, ok.ProcessedAt)

	thin := jobByProduct(t, store, run.ID, "thin")
	assert.Equal(t, JobSkipped, thin.Status)
	assert.Zero(t, thin.RetryCount, "skips do not consume retry budget")

	broken := jobByProduct(t, store, run.ID, "broken")
	assert.Equal(t, JobFailed, broken.Status)
	assert.Equal(t, 1, broken.RetryCount)
	assert.Contains(t, broken.ErrorMessage, "degenerate history")
}

func TestRunCompletesWhenAllPairsTrain(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "a", "b", "c", "d")

	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), newStubTrainer(), history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 4, run.TrainedPairs)
	assert.Zero(t, run.FailedPairs)
}

func TestRunWithEmptyAssortment(t *testing.T) {
	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), newStubTrainer(), memory.NewHistoryRepository(), store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, run.Status)
	assert.Zero(t, run.TotalPairs)
}

func TestResumeReprocessesOnlyFailedJobs(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "ok", "flaky")

	trainer := newStubTrainer()
	trainer.set("s1", "flaky", errors.New("transient"))

	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), trainer, history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunFailed, run.Status)

	trainer.set("s1", "flaky", nil)

	resumed, err := orch.Resume(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, RunCompleted, resumed.Status)
	assert.Equal(t, 2, resumed.TrainedPairs)
	assert.Zero(t, resumed.FailedPairs)
	assert.Empty(t, resumed.ErrorMessage)

	// The pair that already completed is not retrained.
	assert.Equal(t, 1, trainer.callCount("s1", "ok"))
	assert.Equal(t, 2, trainer.callCount("s1", "flaky"))
}

func TestResumeOfFinishedRunIsNoop(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "ok")

	trainer := newStubTrainer()
	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), trainer, history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunCompleted, run.Status)

	resumed, err := orch.Resume(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, resumed.Status)
	assert.Equal(t, 1, trainer.callCount("s1", "ok"))
}

func TestRunLeavesBufferedJobsQueuedOnCancel(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	trainer := newStubTrainer()
	trainer.onTrain = func(string, string) { cancel() }

	cfg := testBatchConfig()
	cfg.WorkerCount = 1

	store := NewMemoryRunStore()
	orch := NewOrchestrator(cfg, trainer, history, store)

	run, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, RunProcessing, run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.Equal(t, 1, run.TrainedPairs)
	assert.Zero(t, run.FailedPairs, "unprocessed jobs must not burn retry budget")

	queued, err := store.ListJobs(context.Background(), run.ID, JobQueued)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	resumed, err := orch.Resume(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, resumed.Status)
	assert.Equal(t, 3, resumed.TrainedPairs)
}

func TestRetryFailedRecoversRun(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "flaky")

	trainer := newStubTrainer()
	trainer.set("s1", "flaky", errors.New("transient"))

	store := NewMemoryRunStore()
	orch := NewOrchestrator(testBatchConfig(), trainer, history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunFailed, run.Status)

	trainer.set("s1", "flaky", nil)
	require.NoError(t, orch.RetryFailed(context.Background()))

	after, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, after.Status)
	assert.Equal(t, 1, after.TrainedPairs)
}

func TestRetryFailedRespectsRetryBudget(t *testing.T) {
	history := memory.NewHistoryRepository()
	seedPairs(history, "doomed")

	trainer := newStubTrainer()
	trainer.set("s1", "doomed", errors.New("permanent"))

	cfg := testBatchConfig()
	cfg.RetryAttempts = 2

	store := NewMemoryRunStore()
	orch := NewOrchestrator(cfg, trainer, history, store)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, RunFailed, run.Status)

	// First retry bumps the count to the budget, the second finds nothing.
	require.NoError(t, orch.RetryFailed(context.Background()))
	require.NoError(t, orch.RetryFailed(context.Background()))

	assert.Equal(t, 2, trainer.callCount("s1", "doomed"))

	job := jobByProduct(t, store, run.ID, "doomed")
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, 2, job.RetryCount)
}
