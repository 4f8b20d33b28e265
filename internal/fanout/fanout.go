// Package fanout runs independent lookups concurrently and reports each
// outcome separately, so one failed panel never blanks the rest of a view.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is one named lookup.
type Task[T any] struct {
	Name string
	Run  func(context.Context) (T, error)
}

// Result is the settled outcome of one task.
type Result[T any] struct {
	Name  string
	Value T
	Err   error
}

// AllSettled executes every task and returns their results in task order.
// Unlike an all-or-nothing batch, a failing task only marks its own slot;
// the returned error slice is embedded per result, never aggregated.
func AllSettled[T any](ctx context.Context, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		results[i].Name = task.Name
		if task.Run == nil {
			results[i].Err = fmt.Errorf("task %s has no runner", task.Name)
			continue
		}
		g.Go(func() error {
			value, err := task.Run(gctx)
			results[i].Value = value
			results[i].Err = err
			// Settled semantics: never propagate, never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()
	return results
}
