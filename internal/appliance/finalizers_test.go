package appliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestFinalizers_RunsInReverseOrder(t *testing.T) {
	t.Parallel()
	var fin Finalizers
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		fin.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, fin.Run(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Zero(t, fin.Len())

	require.NoError(t, fin.Run(context.Background()))
	assert.Len(t, order, 3)
}

func TestFinalizers_AggregatesErrors(t *testing.T) {
	t.Parallel()
	var fin Finalizers
	errA, errB := errors.New("a"), errors.New("b")
	ran := false
	fin.Add("fails a", func(context.Context) error { return errA })
	fin.Add("works", func(context.Context) error { ran = true; return nil })
	fin.Add("fails b", func(context.Context) error { return errB })

	err := fin.Run(context.Background())
	require.Error(t, err)
	assert.True(t, ran)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "fails b: b")
}
