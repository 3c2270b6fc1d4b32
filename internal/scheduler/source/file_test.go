package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_EmitsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"nodes":[]}`), 0644))

	src := NewFileSourceWithOptions("fixtures", &FileOptions{
		Dir:          dir,
		Pattern:      "*.json",
		PollInterval: 10 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	select {
	case job := <-src.Jobs():
		assert.Equal(t, "a.json", job.SourceName)
		assert.Equal(t, SourceTypeFile, src.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for file job")
	}

	// A second scan tick should not re-emit the same file.
	select {
	case job := <-src.Jobs():
		t.Fatalf("unexpected duplicate job: %s", job.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileSource_AckMovesProcessedFile(t *testing.T) {
	dir := t.TempDir()
	processedDir := filepath.Join(dir, "done")
	path := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":[]}`), 0644))

	src := NewFileSourceWithOptions("fixtures", &FileOptions{
		Dir:          dir,
		Pattern:      "*.json",
		PollInterval: time.Hour,
		ProcessedDir: processedDir,
	}, nil)

	job := NewDAGJob(path, "b.json", nil, SourceTypeFile, "fixtures").WithAckToken(path)
	require.NoError(t, src.Ack(context.Background(), job))

	_, err := os.Stat(filepath.Join(processedDir, "b.json"))
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileSource_HealthCheck(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSourceWithOptions("fixtures", &FileOptions{Dir: dir}, nil)
	assert.NoError(t, src.HealthCheck(context.Background()))

	missing := NewFileSourceWithOptions("fixtures", &FileOptions{Dir: filepath.Join(dir, "nope")}, nil)
	assert.Error(t, missing.HealthCheck(context.Background()))
}
