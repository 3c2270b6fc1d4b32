package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sptrsv/sptrsv-sim/pkg/model"
)

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// CreateRun inserts a new pending run and assigns its ID.
func (r *GormRunRepository) CreateRun(ctx context.Context, run *model.Run) error {
	record := runRecordFromModel(run)

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	run.ID = record.ID
	run.CreateTime = record.CreateTime
	return nil
}

// GetRunByUUID retrieves a run by its UUID.
func (r *GormRunRepository) GetRunByUUID(ctx context.Context, runUUID string) (*model.Run, error) {
	var record RunRecord

	err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run not found: %s", runUUID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return record.ToModel(), nil
}

// ListRuns retrieves the most recent runs, newest first.
func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	var records []RunRecord

	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*model.Run, len(records))
	for i, rec := range records {
		runs[i] = rec.ToModel()
	}

	return runs, nil
}

// UpdateRunStatus updates a run's status and status info.
func (r *GormRunRepository) UpdateRunStatus(ctx context.Context, runUUID string, status model.RunStatus, info string) error {
	updates := map[string]interface{}{
		"status":      status,
		"status_info": info,
	}

	if status == model.RunStatusRunning {
		now := time.Now()
		updates["begin_time"] = &now
	}

	result := r.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("run_uuid = ?", runUUID).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runUUID)
	}

	return nil
}

// ClaimPendingRuns atomically transitions up to limit pending runs that
// carry a DAG JSON payload to Running and returns them.
func (r *GormRunRepository) ClaimPendingRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	var claimed []*model.Run

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var records []RunRecord

		err := tx.Where("status = ? AND dag_json IS NOT NULL", model.RunStatusPending).
			Order("id ASC").
			Limit(limit).
			Find(&records).Error
		if err != nil {
			return fmt.Errorf("failed to query pending runs: %w", err)
		}

		now := time.Now()
		for _, rec := range records {
			res := tx.Model(&RunRecord{}).
				Where("id = ? AND status = ?", rec.ID, model.RunStatusPending).
				Updates(map[string]interface{}{
					"status":     model.RunStatusRunning,
					"begin_time": &now,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to claim run %s: %w", rec.RunUUID, res.Error)
			}
			if res.RowsAffected == 0 {
				continue // claimed by another poller between the query and the update
			}
			rec.Status = model.RunStatusRunning
			claimed = append(claimed, rec.ToModel())
		}

		return nil
	})

	return claimed, err
}

// CompleteRun records a run's final statistics and marks it finished.
func (r *GormRunRepository) CompleteRun(ctx context.Context, runUUID string, status model.RunStatus, nodeCount, maxMEC, totalCycles, peActive, nfuActive int, traceBucket, traceKey string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&RunRecord{}).
		Where("run_uuid = ?", runUUID).
		Updates(map[string]interface{}{
			"status":            status,
			"node_count":        nodeCount,
			"max_mec":           maxMEC,
			"total_cycles":      totalCycles,
			"pe_active_cycles":  peActive,
			"nfu_active_cycles": nfuActive,
			"trace_bucket":      traceBucket,
			"trace_key":         traceKey,
			"end_time":          &now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runUUID)
	}

	return nil
}
