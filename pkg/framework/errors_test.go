package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateNone(t *testing.T) {
	require.NoError(t, Aggregate())
	require.NoError(t, Aggregate(nil, nil))
}

func TestAggregateSingle(t *testing.T) {
	err := errors.New("boom")
	require.Same(t, err, Aggregate(nil, err, nil))
}

func TestAggregateMultiple(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	err := Aggregate(errA, nil, errB)
	require.Error(t, err)
	require.Equal(t, "multiple errors: a; b", err.Error())
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}
