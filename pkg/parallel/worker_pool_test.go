package parallel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Execute(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig())

	inputs := []int{1, 2, 3, 4, 5}
	results := pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, input int) (int, error) {
		return input * 2, nil
	})

	if len(results) != len(inputs) {
		t.Errorf("Expected %d results, got %d", len(inputs), len(results))
	}

	for i, r := range results {
		if r.Error != nil {
			t.Errorf("Unexpected error for input %d: %v", inputs[i], r.Error)
		}
		if r.Result != inputs[i]*2 {
			t.Errorf("Expected %d, got %d", inputs[i]*2, r.Result)
		}
	}
}

func TestWorkerPool_Timeout(t *testing.T) {
	config := DefaultPoolConfig()
	config.Timeout = 50 * time.Millisecond
	pool := NewWorkerPool[int, int](config)

	inputs := make([]int, 10)
	for i := range inputs {
		inputs[i] = i
	}

	results := pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, input int) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return input, nil
		}
	})

	// Some tasks should have been cancelled
	cancelledCount := 0
	for _, r := range results {
		if r.Error != nil {
			cancelledCount++
		}
	}

	if cancelledCount == 0 {
		t.Log("Warning: No tasks were cancelled by timeout")
	}
}

func TestForEach(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum atomic.Int64

	processed, err := ForEach(
		context.Background(),
		items,
		DefaultPoolConfig(),
		func(ctx context.Context, item int) error {
			sum.Add(int64(item))
			return nil
		},
	)

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if processed != 5 {
		t.Errorf("Expected 5 processed, got %d", processed)
	}
	if sum.Load() != 15 {
		t.Errorf("Expected sum 15, got %d", sum.Load())
	}
}

func TestForEach_ReportsFirstError(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	processed, err := ForEach(
		context.Background(),
		items,
		DefaultPoolConfig(),
		func(ctx context.Context, item int) error {
			if item == 3 {
				return context.DeadlineExceeded
			}
			return nil
		},
	)

	if err == nil {
		t.Error("Expected an error, got nil")
	}
	if processed == int64(len(items)) {
		t.Errorf("Expected fewer than %d processed when one task fails, got %d", len(items), processed)
	}
}

func BenchmarkWorkerPool(b *testing.B) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig())
	inputs := make([]int, 1000)
	for i := range inputs {
		inputs[i] = i
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ExecuteFunc(context.Background(), inputs, func(ctx context.Context, input int) (int, error) {
			return input * 2, nil
		})
	}
}
