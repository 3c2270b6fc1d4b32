// Package repository provides database abstraction for the sptrsv-sim service.
package repository

import (
	"context"

	"github.com/sptrsv/sptrsv-sim/pkg/model"
)

// RunRepository defines the interface for persisting compile-and-simulate
// runs.
type RunRepository interface {
	// CreateRun inserts a new pending run and assigns its ID.
	CreateRun(ctx context.Context, run *model.Run) error

	// GetRunByUUID retrieves a run by its UUID.
	GetRunByUUID(ctx context.Context, runUUID string) (*model.Run, error)

	// ListRuns retrieves the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)

	// UpdateRunStatus updates a run's status and status info.
	UpdateRunStatus(ctx context.Context, runUUID string, status model.RunStatus, info string) error

	// CompleteRun records a run's final statistics and marks it finished.
	CompleteRun(ctx context.Context, runUUID string, status model.RunStatus, nodeCount, maxMEC, totalCycles, peActive, nfuActive int, traceBucket, traceKey string) error

	// ClaimPendingRuns atomically transitions up to limit pending runs that
	// carry a DAG JSON payload to Running and returns them, for the
	// database job source to drain without double-dispatching a run.
	ClaimPendingRuns(ctx context.Context, limit int) ([]*model.Run, error)
}
