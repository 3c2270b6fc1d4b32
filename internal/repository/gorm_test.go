package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sptrsv/sptrsv-sim/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&RunRecord{})
	require.NoError(t, err)

	return db
}

func TestGormRunRepository_CreateRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	run := model.NewRun("run-uuid-1", "matrix_bcsstk01")
	err := repo.CreateRun(ctx, run)
	require.NoError(t, err)
	assert.NotZero(t, run.ID)
	assert.False(t, run.CreateTime.IsZero())
}

func TestGormRunRepository_GetRunByUUID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		run, err := repo.GetRunByUUID(ctx, "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, run)
		assert.Contains(t, err.Error(), "run not found")
	})

	t.Run("Success", func(t *testing.T) {
		run := model.NewRun("run-uuid-2", "matrix_bcsstk02")
		require.NoError(t, repo.CreateRun(ctx, run))

		result, err := repo.GetRunByUUID(ctx, "run-uuid-2")
		require.NoError(t, err)
		assert.Equal(t, "matrix_bcsstk02", result.SourceName)
		assert.Equal(t, model.RunStatusPending, result.Status)
	})
}

func TestGormRunRepository_ListRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := model.NewRun("run-uuid-list-"+string(rune('a'+i)), "matrix")
		require.NoError(t, repo.CreateRun(ctx, run))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	// newest first
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestGormRunRepository_UpdateRunStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		err := repo.UpdateRunStatus(ctx, "nonexistent", model.RunStatusRunning, "")
		assert.Error(t, err)
	})

	t.Run("Success", func(t *testing.T) {
		run := model.NewRun("run-uuid-3", "matrix")
		require.NoError(t, repo.CreateRun(ctx, run))

		err := repo.UpdateRunStatus(ctx, "run-uuid-3", model.RunStatusRunning, "compiling")
		require.NoError(t, err)

		updated, err := repo.GetRunByUUID(ctx, "run-uuid-3")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusRunning, updated.Status)
		assert.Equal(t, "compiling", updated.StatusInfo)
		require.NotNil(t, updated.BeginTime)
	})
}

func TestGormRunRepository_CompleteRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	run := model.NewRun("run-uuid-4", "matrix")
	require.NoError(t, repo.CreateRun(ctx, run))

	err := repo.CompleteRun(ctx, "run-uuid-4", model.RunStatusCompleted, 42, 7, 120, 100, 10, "bucket", "key.json")
	require.NoError(t, err)

	updated, err := repo.GetRunByUUID(ctx, "run-uuid-4")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, updated.Status)
	assert.Equal(t, 42, updated.NodeCount)
	assert.Equal(t, 7, updated.MaxMEC)
	assert.Equal(t, 120, updated.TotalCycles)
	assert.Equal(t, "bucket", updated.TraceBucket)
	assert.Equal(t, "key.json", updated.TraceKey)
	require.NotNil(t, updated.EndTime)

	t.Run("NotFound", func(t *testing.T) {
		err := repo.CompleteRun(ctx, "nonexistent", model.RunStatusCompleted, 1, 1, 1, 1, 1, "b", "k")
		assert.Error(t, err)
	})
}

func TestGormRunRepository_ClaimPendingRuns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRunRepository(db)
	ctx := context.Background()

	withDAG := model.NewRun("run-uuid-claim-1", "matrix")
	withDAG.DAGJSON = []byte(`{"nodes":[]}`)
	require.NoError(t, repo.CreateRun(ctx, withDAG))

	withoutDAG := model.NewRun("run-uuid-claim-2", "matrix")
	require.NoError(t, repo.CreateRun(ctx, withoutDAG))

	claimed, err := repo.ClaimPendingRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "run-uuid-claim-1", claimed[0].RunUUID)
	assert.Equal(t, model.RunStatusRunning, claimed[0].Status)

	// A second claim finds nothing left to claim.
	claimed, err = repo.ClaimPendingRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
