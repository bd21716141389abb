package insights

import (
	"context"

	"github.com/gridstatus/internal-analytics/internal/pkg/async"
)

// maxFanOutWorkers caps concurrent queries per endpoint so one dashboard
// page cannot monopolize the service's rate budget.
const maxFanOutWorkers = 6

// ExecuteAll runs a named set of queries concurrently and waits for the
// whole set. There is no partial-success contract: if any query terminally
// fails, the remaining ones are canceled and the set's error is returned,
// because the UI assumes a consistent snapshot across a page's queries.
func (c *Client) ExecuteAll(ctx context.Context, named map[string]Query) (map[string][]Row, error) {
	tasks := make([]async.Task, 0, len(named))
	for name, q := range named {
		name, q := name, q
		tasks = append(tasks, async.Task{
			Name: name,
			Execute: func(ctx context.Context) (interface{}, error) {
				return c.Execute(ctx, q)
			},
		})
	}

	workers := len(tasks)
	if workers > maxFanOutWorkers {
		workers = maxFanOutWorkers
	}

	results := async.NewPool(workers).Execute(ctx, tasks)
	if err := async.FirstError(results); err != nil {
		return nil, err
	}

	out := make(map[string][]Row, len(results))
	for name, result := range results {
		rows, _ := result.Data.([]Row)
		out[name] = rows
	}
	return out, nil
}
