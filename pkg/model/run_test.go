package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStatus_String(t *testing.T) {
	tests := []struct {
		status   RunStatus
		expected string
	}{
		{RunStatusPending, "pending"},
		{RunStatusRunning, "running"},
		{RunStatusCompleted, "completed"},
		{RunStatusFailed, "failed"},
		{RunStatusTimedOut, "timed_out"},
		{RunStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestNewRun(t *testing.T) {
	r := NewRun("uuid-1", "matrix_42")
	assert.Equal(t, "uuid-1", r.RunUUID)
	assert.Equal(t, "matrix_42", r.SourceName)
	assert.Equal(t, RunStatusPending, r.Status)
	assert.False(t, r.CreateTime.IsZero())
}

func TestRun_Duration(t *testing.T) {
	r := &Run{}
	assert.Equal(t, time.Duration(0), r.Duration())

	begin := time.Now()
	end := begin.Add(5 * time.Second)
	r.BeginTime = &begin
	r.EndTime = &end
	assert.Equal(t, 5*time.Second, r.Duration())
}
