package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAfterBudget(t *testing.T) {
	b := &Backoff{Initial: 5 * time.Second, Max: 40 * time.Second, Budget: 3}

	require.Equal(t, 5*time.Second, b.Interval())

	// Intervals follow initial * 2^k, where k advances once per
	// spent budget, and never exceed the cap.
	expect := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		40 * time.Second,
	}
	for _, want := range expect {
		for i := 0; i < b.Budget; i++ {
			b.Failure()
		}
		require.Equal(t, want, b.Interval())
		require.Equal(t, 0, b.Failures())
	}
}

func TestBackoffNonDecreasingWhileFailing(t *testing.T) {
	b := &Backoff{Initial: time.Second, Max: 16 * time.Second, Budget: 2}
	prev := b.Interval()
	for i := 0; i < 20; i++ {
		b.Failure()
		require.GreaterOrEqual(t, b.Interval(), prev)
		prev = b.Interval()
	}
	require.Equal(t, 16*time.Second, b.Interval())
}

func TestBackoffBudgetNotSpentKeepsInterval(t *testing.T) {
	b := &Backoff{Initial: time.Second, Max: time.Minute, Budget: 3}
	b.Failure()
	b.Failure()
	require.Equal(t, time.Second, b.Interval())
	require.Equal(t, 2, b.Failures())
}

func TestBackoffSuccessResets(t *testing.T) {
	b := &Backoff{Initial: time.Second, Max: time.Minute, Budget: 1}
	b.Failure()
	b.Failure()
	require.Equal(t, 4*time.Second, b.Interval())
	b.Success()
	require.Equal(t, time.Second, b.Interval())
	require.Equal(t, 0, b.Failures())
}

func TestBackoffTimeGate(t *testing.T) {
	start := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	b := &Backoff{Initial: 5 * time.Second, Max: time.Minute, Budget: 3}

	// Unarmed gate is always due.
	require.True(t, b.Due(start))

	b.Arm(start)
	require.False(t, b.Due(start))
	require.False(t, b.Due(start.Add(4*time.Second)))
	require.True(t, b.Due(start.Add(5*time.Second)))

	// An attempt restarts the gate whatever its outcome.
	b.Attempt(start.Add(5 * time.Second))
	require.False(t, b.Due(start.Add(9*time.Second)))
	require.True(t, b.Due(start.Add(10*time.Second)))
}
