package appliance

import (
	"context"
	"errors"
	"fmt"

	"github.com/imamik/miqcheck/internal/rest"
	"github.com/imamik/miqcheck/internal/util/poll"
)

// Task states and statuses.
const (
	TaskStateFinished = "finished"
	TaskStatusError   = "error"
)

// ErrTaskFailed is returned as soon as a polled task reports status error.
var ErrTaskFailed = errors.New("task failed")

// ScanVM starts SmartState analysis of vm and waits for its task to finish.
// It returns the finished task.
func (a *Appliance) ScanVM(ctx context.Context, vm *rest.Resource, mode Mode) (*rest.Resource, error) {
	var result *rest.Resource
	switch mode {
	case FromDetail:
		res, err := vm.Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vm %s: %w", vm.ID(), err)
		}
		result = res
	case FromCollection:
		results, err := a.client.Collection(collVMs).Scan(ctx, vm)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vm %s: %w", vm.ID(), err)
		}
		if len(results) != 1 {
			return nil, fmt.Errorf("scan returned %d results, want 1", len(results))
		}
		result = results[0]
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}

	task, err := result.Task(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan task: %w", err)
	}
	if err := a.WaitForTask(ctx, task, "vm scan finished"); err != nil {
		return nil, err
	}
	return task, nil
}

// WaitForTask polls task until its state is finished. A task reporting
// status error fails the wait immediately with ErrTaskFailed.
func (a *Appliance) WaitForTask(ctx context.Context, task *rest.Resource, message string) error {
	return poll.Condition(ctx, func(ctx context.Context) (bool, error) {
		if err := task.Reload(ctx); err != nil {
			return false, fmt.Errorf("failed to reload task %s: %w", task.ID(), err)
		}
		if equalFold(task, "status", TaskStatusError) {
			return false, fmt.Errorf("%w: task %s: %s", ErrTaskFailed, task.ID(), task.String("message"))
		}
		return equalFold(task, "state", TaskStateFinished), nil
	}, a.pollOptions(a.timeouts.Task, a.timeouts.TaskPoll, message)...)
}

// FindVM returns the VM with the given name.
func (a *Appliance) FindVM(ctx context.Context, name string) (*rest.Resource, error) {
	vm, err := a.client.Collection(collVMs).GetBy(ctx, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to find vm %q: %w", name, err)
	}
	return vm, nil
}
