// Package async runs named tasks concurrently and collects their results.
//
// Endpoints use it to fan out the set of analytics queries one page needs.
// The set is all-or-nothing: the first task error cancels the context seen
// by every other task, since a partial result set would hand the UI an
// inconsistent snapshot.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func(ctx context.Context) (interface{}, error)
}

// Result is the outcome of one task.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool runs tasks with a bounded number of workers.
type Pool struct {
	workerCount int
}

// NewPool creates a pool with the given worker count.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs all tasks and returns their results keyed by name. On the
// first task error the shared context is canceled so in-flight tasks can
// bail out early; their results (including cancellation errors) are still
// collected so the caller sees a complete map.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				data, err := task.Execute(ctx)
				if err != nil {
					cancel()
				}
				resultCh <- Result{Name: task.Name, Data: data, Err: err}
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				// Unstarted tasks are reported as canceled rather than
				// silently missing from the result map.
				resultCh <- Result{Name: task.Name, Err: ctx.Err()}
			}
		}
	}()

	results := make(map[string]Result, len(tasks))
	for i := 0; i < len(tasks); i++ {
		result := <-resultCh
		results[result.Name] = result
	}

	wg.Wait()
	return results
}

// FirstError returns the error of any failed task, preferring non-cancel
// errors so the root cause survives the fail-fast cancellation.
func FirstError(results map[string]Result) error {
	var canceled error
	for _, result := range results {
		if result.Err == nil {
			continue
		}
		if result.Err == context.Canceled {
			canceled = result.Err
			continue
		}
		return result.Err
	}
	return canceled
}
