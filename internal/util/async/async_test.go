package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestRunParallel_Success(t *testing.T) {
	var count atomic.Int32
	task := func(_ context.Context) error {
		count.Add(1)
		return nil
	}

	err := RunParallel(context.Background(), []Task{
		{Name: "task1", Func: task},
		{Name: "task2", Func: task},
		{Name: "task3", Func: task},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), count.Load())
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	assert.NoError(t, RunParallel(context.Background(), nil))
	assert.NoError(t, RunParallel(context.Background(), []Task{}))
}

func TestRunParallel_SingleError(t *testing.T) {
	expectedErr := errors.New("task failed")

	err := RunParallel(context.Background(), []Task{
		{Name: "success", Func: func(_ context.Context) error { return nil }},
		{Name: "failing", Func: func(_ context.Context) error { return expectedErr }},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, "failing: task failed", err.Error())
}

func TestRunParallel_CollectsEveryError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	err := RunParallel(context.Background(), []Task{
		{Name: "fail1", Func: func(_ context.Context) error { return err1 }},
		{Name: "ok", Func: func(_ context.Context) error { return nil }},
		{Name: "fail2", Func: func(_ context.Context) error { return err2 }},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, err1)
	assert.ErrorIs(t, err, err2)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "fail1")
	assert.Contains(t, errs[1].Error(), "fail2")
}

func TestRunParallel_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	task := func(ctx context.Context) error {
		started.Add(1)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- RunParallel(context.Background(), []Task{{Name: "a", Func: task}, {Name: "b", Func: task}})
	}()

	require.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	assert.NoError(t, <-done)
}

func TestRunParallel_PassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunParallel(ctx, []Task{{Name: "cancelled", Func: func(ctx context.Context) error {
		return ctx.Err()
	}}})

	assert.ErrorIs(t, err, context.Canceled)
}
