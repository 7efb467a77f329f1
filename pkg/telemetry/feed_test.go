package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func snap(device, data string) Snapshot {
	return Snapshot{Device: device, At: time.Now(), Data: []byte(data)}
}

func TestFeedFanOut(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe(4)
	b := f.Subscribe(4)

	f.Post(snap("dht22", `{"humidity":65.2}`))

	require.Equal(t, "dht22", (<-a.C).Device)
	require.Equal(t, "dht22", (<-b.C).Device)
}

func TestFeedLatestPerDevice(t *testing.T) {
	f := NewFeed()
	f.Post(snap("mpu6050", `{"n":1}`))
	f.Post(snap("dht22", `{"n":2}`))
	f.Post(snap("mpu6050", `{"n":3}`))

	latest := f.Latest()
	require.Len(t, latest, 2)
	require.Equal(t, "dht22", latest[0].Device)
	require.Equal(t, "mpu6050", latest[1].Device)
	require.JSONEq(t, `{"n":3}`, string(latest[1].Data))
}

func TestFeedSlowSubscriberDrops(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe(1)
	f.Post(snap("dht22", `{"n":1}`))
	f.Post(snap("dht22", `{"n":2}`)) // dropped, buffer full

	require.JSONEq(t, `{"n":1}`, string((<-sub.C).Data))
	select {
	case s := <-sub.C:
		t.Fatalf("unexpected snapshot %s", s.Data)
	default:
	}
}

func TestFeedSubscriptionClose(t *testing.T) {
	f := NewFeed()
	sub := f.Subscribe(1)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	// Posting after close must not panic or deliver.
	f.Post(snap("dht22", `{}`))
	_, ok := <-sub.C
	require.False(t, ok)
}
