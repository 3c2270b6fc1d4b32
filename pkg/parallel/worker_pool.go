// Package parallel provides a small generic worker pool used to fan out
// per-artifact work (compression, upload) across goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: runtime.NumCPU(), clamped to [2, 8]
	MaxWorkers int

	// TaskBufferSize is the buffer size for the task channel.
	// Default: MaxWorkers * 2
	TaskBufferSize int

	// Timeout is the maximum time for the entire operation.
	// Default: 0 (no timeout)
	Timeout time.Duration
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8 // Cap at 8 to avoid excessive overhead
	}
	if workers < 2 {
		workers = 2
	}
	return PoolConfig{
		MaxWorkers:     workers,
		TaskBufferSize: workers * 2,
	}
}

// Task represents a unit of work that can be executed by the worker pool.
type Task[T any, R any] interface {
	// Execute performs the task and returns the result.
	Execute(ctx context.Context) (R, error)
	// Input returns the input data for this task.
	Input() T
}

// TaskFunc is a function type that implements Task interface.
type TaskFunc[T any, R any] struct {
	input   T
	execute func(ctx context.Context, input T) (R, error)
}

// NewTask creates a new task from a function.
func NewTask[T any, R any](input T, fn func(ctx context.Context, input T) (R, error)) *TaskFunc[T, R] {
	return &TaskFunc[T, R]{
		input:   input,
		execute: fn,
	}
}

// Execute implements Task interface.
func (t *TaskFunc[T, R]) Execute(ctx context.Context) (R, error) {
	return t.execute(ctx, t.input)
}

// Input implements Task interface.
func (t *TaskFunc[T, R]) Input() T {
	return t.input
}

// TaskResult holds the result of a task execution.
type TaskResult[T any, R any] struct {
	Input    T
	Result   R
	Error    error
	Duration time.Duration
}

// WorkerPool manages a pool of workers for parallel task execution.
type WorkerPool[T any, R any] struct {
	config PoolConfig
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool[T any, R any](config PoolConfig) *WorkerPool[T, R] {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	if config.TaskBufferSize <= 0 {
		config.TaskBufferSize = config.MaxWorkers * 2
	}
	return &WorkerPool[T, R]{config: config}
}

// Execute runs all tasks in parallel and returns results.
// Results are returned in the same order as input tasks.
func (p *WorkerPool[T, R]) Execute(ctx context.Context, tasks []Task[T, R]) []TaskResult[T, R] {
	if len(tasks) == 0 {
		return nil
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	results := make([]TaskResult[T, R], len(tasks))
	taskCh := make(chan int, p.config.TaskBufferSize)

	var wg sync.WaitGroup
	numWorkers := min(p.config.MaxWorkers, len(tasks))

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-taskCh:
					if !ok {
						return
					}
					task := tasks[idx]
					taskStart := time.Now()
					result, err := task.Execute(ctx)
					results[idx] = TaskResult[T, R]{
						Input:    task.Input(),
						Result:   result,
						Error:    err,
						Duration: time.Since(taskStart),
					}
				}
			}
		}()
	}

	go func() {
		for i := range tasks {
			select {
			case <-ctx.Done():
				break
			case taskCh <- i:
			}
		}
		close(taskCh)
	}()

	wg.Wait()
	return results
}

// ExecuteFunc is a convenience method that creates tasks from a function.
func (p *WorkerPool[T, R]) ExecuteFunc(ctx context.Context, inputs []T, fn func(ctx context.Context, input T) (R, error)) []TaskResult[T, R] {
	tasks := make([]Task[T, R], len(inputs))
	for i, input := range inputs {
		tasks[i] = NewTask(input, fn)
	}
	return p.Execute(ctx, tasks)
}

// ForEach executes a function for each item in parallel, used to compress and
// upload each run artifact (trace, rewritten DAG, MEC map) on its own goroutine.
// Returns the number of items processed and the first error that occurred.
func ForEach[T any](
	ctx context.Context,
	items []T,
	config PoolConfig,
	fn func(ctx context.Context, item T) error,
) (processed int64, firstError error) {
	if len(items) == 0 {
		return 0, nil
	}

	var processedCount atomic.Int64
	var errOnce sync.Once
	var mu sync.Mutex

	pool := NewWorkerPool[T, struct{}](config)
	pool.ExecuteFunc(ctx, items, func(ctx context.Context, item T) (struct{}, error) {
		err := fn(ctx, item)
		if err != nil {
			errOnce.Do(func() {
				mu.Lock()
				firstError = err
				mu.Unlock()
			})
			return struct{}{}, err
		}
		processedCount.Add(1)
		return struct{}{}, nil
	})

	return processedCount.Load(), firstError
}
