package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecorderQueueBounds(t *testing.T) {
	r := New(t.TempDir(), Config{QueueDepth: 1})
	require.NoError(t, r.Append("dht22", []byte(`{"n":1}`)))
	require.ErrorIs(t, r.Append("dht22", []byte(`{"n":2}`)), ErrQueueFull)
}

func TestRecorderWritesTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, Config{})
	r.now = func() time.Time {
		return time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, r.Append("dht22", []byte(`{"n":1}`)))
	require.NoError(t, r.Append("dht22", []byte(`{"n":2}`)))
	require.NoError(t, r.Append("mpu6050", []byte(`{"n":3}`)))

	// Queued entries are flushed even when the context is already
	// canceled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Run(ctx), context.Canceled)

	data, err := os.ReadFile(filepath.Join(dir, "dht22.log"))
	require.NoError(t, err)
	require.Equal(t,
		"2021-06-01 12:00:00 {\"n\":1}\n2021-06-01 12:00:00 {\"n\":2}\n",
		string(data))

	data, err = os.ReadFile(filepath.Join(dir, "mpu6050.log"))
	require.NoError(t, err)
	require.Equal(t, "2021-06-01 12:00:00 {\"n\":3}\n", string(data))
}
