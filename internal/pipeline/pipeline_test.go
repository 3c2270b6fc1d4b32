package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/internal/storage"
)

const chainDAG = `[
	{"id":"a","type":"NORMAL","parents":[],"level":0,"cost":1},
	{"id":"b","type":"NORMAL","parents":["a"],"level":1,"cost":2},
	{"id":"c","type":"NORMAL","parents":["b"],"level":2,"cost":2}
]`

func TestRun_ProducesCompletedRun(t *testing.T) {
	out, err := Run(context.Background(), []byte(chainDAG), "chain.json", Deps{}, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.False(t, out.Schedule.TimedOut)
	assert.Equal(t, 3, out.Rewritten.Len())
	assert.Greater(t, out.MEC.MaxMEC, 0)
}

func TestRun_RejectsMalformedDAG(t *testing.T) {
	_, err := Run(context.Background(), []byte(`not json`), "bad.json", Deps{}, DefaultOptions())
	assert.Error(t, err)
}

func TestRun_PersistsAndUploadsArtifacts(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&repository.RunRecord{}))
	repo := repository.NewGormRunRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	out, err := Run(context.Background(), []byte(chainDAG), "chain.json", Deps{Repo: repo, Store: store}, DefaultOptions())
	require.NoError(t, err)

	persisted, err := repo.GetRunByUUID(context.Background(), out.Run.RunUUID)
	require.NoError(t, err)
	assert.Equal(t, out.Run.NodeCount, persisted.NodeCount)
	assert.NotEmpty(t, persisted.TraceKey)
}

func TestDir_RunsEveryFileAndCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(chainDAG), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`garbage`), 0644))

	results, err := Dir(context.Background(), dir, Deps{}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]BatchResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.NoError(t, byName["good.json"].Err)
	assert.Error(t, byName["bad.json"].Err)
	assert.Equal(t, "good.json", byName["good.json"].Summary.Name)
}
