package async

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently and waits for all of them. Every
// failure is wrapped with its task name; the failures are combined in task
// order so errors.Is and multierr.Errors see each one.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "request 1", Func: req1.Reload},
//	    {Name: "request 2", Func: req2.Reload},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Go(func() {
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
		})
	}
	wg.Wait()

	return multierr.Combine(errs...)
}
