package source

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_AcceptsDAGSubmission(t *testing.T) {
	src := NewHTTPSourceWithOptions("webhook", &HTTPOptions{
		ListenAddr:   "127.0.0.1:18765",
		Path:         "/runs",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxBodySize:  1 << 20,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	time.Sleep(50 * time.Millisecond) // let the listener come up

	body := []byte(`{"nodes":[{"id":"a","parents":[]}]}`)
	req, err := http.NewRequest(http.MethodPost, "http://127.0.0.1:18765/runs", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Source-Name", "test-dag")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case job := <-src.Jobs():
		assert.Equal(t, "test-dag", job.SourceName)
		assert.Equal(t, body, job.DAGJSON)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for http job")
	}
}

func TestHTTPSource_RejectsEmptyBody(t *testing.T) {
	src := NewHTTPSourceWithOptions("webhook", &HTTPOptions{
		ListenAddr:   "127.0.0.1:18766",
		Path:         "/runs",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxBodySize:  1 << 20,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post("http://127.0.0.1:18766/runs", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPSource_HealthCheckReflectsRunningState(t *testing.T) {
	src := NewHTTPSourceWithOptions("webhook", DefaultHTTPOptions(), nil)
	assert.Error(t, src.HealthCheck(context.Background()))
}
