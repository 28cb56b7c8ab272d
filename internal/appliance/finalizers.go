package appliance

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

type finalizer struct {
	name string
	fn   func(context.Context) error
}

// Finalizers collects cleanups registered while a workflow runs. Run
// executes them in reverse order of registration. The zero value is ready
// to use.
type Finalizers struct {
	mu    sync.Mutex
	funcs []finalizer
}

// Add registers fn under name.
func (f *Finalizers) Add(name string, fn func(context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs = append(f.funcs, finalizer{name: name, fn: fn})
}

// Len returns the number of pending cleanups.
func (f *Finalizers) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.funcs)
}

// Run executes and clears all cleanups, last registered first. Every
// cleanup runs even if an earlier one fails; the errors are combined.
func (f *Finalizers) Run(ctx context.Context) error {
	f.mu.Lock()
	funcs := f.funcs
	f.funcs = nil
	f.mu.Unlock()

	var errs error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i].fn(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", funcs[i].name, err))
		}
	}
	return errs
}
