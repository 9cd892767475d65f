package domain

import (
	"fmt"
	"time"
)

// The error types below are all recoverable-by-caller conditions: the
// caller can retry with more data, different configuration, or a retrain.
// None indicate corrupted persistent state. Each carries enough context
// (store, product, which computation, why) for the caller to decide
// between retry and escalation.

// InsufficientHistoryError reports that the observation history for a
// pair is too short or too gappy to produce reliable statistics.
type InsufficientHistoryError struct {
	StoreID   string
	ProductID string
	Have      int
	Need      int
	Reason    string
}

func (e *InsufficientHistoryError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("insufficient history for store=%s product=%s: %s", e.StoreID, e.ProductID, e.Reason)
	}
	return fmt.Sprintf("insufficient history for store=%s product=%s: have %d observations, need %d",
		e.StoreID, e.ProductID, e.Have, e.Need)
}

// ModelTrainingError reports that model fitting failed, e.g. the
// parameter search did not converge.
type ModelTrainingError struct {
	StoreID   string
	ProductID string
	Family    string
	Reason    string
}

func (e *ModelTrainingError) Error() string {
	return fmt.Sprintf("model training failed for store=%s product=%s family=%s: %s",
		e.StoreID, e.ProductID, e.Family, e.Reason)
}

// StaleModelError reports that a model is too old to forecast from and
// must be retrained first.
type StaleModelError struct {
	StoreID   string
	ProductID string
	TrainedAt time.Time
	AsOf      time.Time
	MaxAge    time.Duration
}

func (e *StaleModelError) Error() string {
	return fmt.Sprintf("model for store=%s product=%s trained at %s is older than %s as of %s; retrain before forecasting",
		e.StoreID, e.ProductID, e.TrainedAt.Format("2006-01-02"), e.MaxAge, e.AsOf.Format("2006-01-02"))
}

// InvalidServiceLevelError reports a target service level outside (0, 1).
type InvalidServiceLevelError struct {
	ServiceLevel float64
}

func (e *InvalidServiceLevelError) Error() string {
	return fmt.Sprintf("invalid service level %v: must be strictly between 0 and 1", e.ServiceLevel)
}

// InvalidSupplierConstraintsError reports non-positive cost or case-pack
// inputs to the order quantity optimizer.
type InvalidSupplierConstraintsError struct {
	ProductID string
	Reason    string
}

func (e *InvalidSupplierConstraintsError) Error() string {
	return fmt.Sprintf("invalid supplier constraints for product=%s: %s", e.ProductID, e.Reason)
}

// NotFoundError reports a missing persisted record (model, inventory
// position, supplier constraints).
type NotFoundError struct {
	Kind      string
	StoreID   string
	ProductID string
}

func (e *NotFoundError) Error() string {
	if e.StoreID == "" {
		return fmt.Sprintf("%s not found for product=%s", e.Kind, e.ProductID)
	}
	return fmt.Sprintf("%s not found for store=%s product=%s", e.Kind, e.StoreID, e.ProductID)
}
