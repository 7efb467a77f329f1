package dht22

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/periph.go/pkg/hw/hwtest"
	"github.com/robotalks/periph.go/pkg/recovery"
)

// goodFrame is the device datasheet example: 65.2% RH, 35.1C.
var goodFrame = Frame{0x02, 0x8C, 0x01, 0x5F, 0xEE}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func testSensor(line *hwtest.Line, cfg Config) (*Sensor, *fakeClock) {
	s := New(line, cfg)
	clk := &fakeClock{t: time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clk.Now
	s.sleep = func(time.Duration) {}
	return s, clk
}

func TestSensorReadFrame(t *testing.T) {
	line := hwtest.NewLine().ScriptRead(goodFrame)
	s, _ := testSensor(line, Config{})

	require.NoError(t, s.Init())
	require.NoError(t, s.Read())

	r := s.Reading()
	require.Equal(t, recovery.DataUpdated, r.State)
	require.Equal(t, 65.2, r.Humidity)
	require.Equal(t, 35.1, r.TemperatureC)
	require.InDelta(t, 95.18, r.TemperatureF, 1e-9)
	require.Zero(t, line.Remaining())

	// Start signal: drive low, then release to the device.
	require.Equal(t,
		[]string{"output", "set high", "output", "set low", "input"},
		line.Events)
}

func TestSensorChecksumMismatchKeepsFields(t *testing.T) {
	bad := goodFrame
	bad[4]++
	line := hwtest.NewLine().ScriptRead(goodFrame).ScriptRead(bad)
	s, _ := testSensor(line, Config{})

	require.NoError(t, s.Init())
	require.NoError(t, s.Read())

	err := s.Read()
	require.ErrorIs(t, err, ErrChecksum)

	r := s.Reading()
	require.Equal(t, recovery.ChecksumError, r.State)
	require.Equal(t, 65.2, r.Humidity)
	require.Equal(t, 35.1, r.TemperatureC)
	require.InDelta(t, 95.18, r.TemperatureF, 1e-9)
}

func TestSensorNoResponseThenGatedRecovery(t *testing.T) {
	line := hwtest.NewLine()
	s, clk := testSensor(line, Config{})
	require.NoError(t, s.Init())

	err := s.Read()
	require.ErrorIs(t, err, ErrNoResponse)
	require.Equal(t, recovery.TimingError, s.Reading().State)

	// The gate was just armed: no reinitialization yet.
	events := len(line.Events)
	require.NoError(t, s.ResetOnError())
	require.Equal(t, recovery.TimingError, s.Reading().State)
	require.Len(t, line.Events, events)

	// Once the retry interval elapsed the attempt happens.
	clk.Advance(DefaultRetryInterval)
	require.NoError(t, s.ResetOnError())
	require.Equal(t, recovery.Ready, s.Reading().State)
	require.Greater(t, len(line.Events), events)
}

func TestSensorRecoveryBackoff(t *testing.T) {
	line := hwtest.NewLine()
	s, clk := testSensor(line, Config{MaxRetries: 1, RetryInterval: 5 * time.Second})
	require.NoError(t, s.Init())

	line.OutputErr = errors.New("line stuck")
	require.Error(t, s.Read())
	require.Equal(t, recovery.Error, s.Reading().State)

	clk.Advance(5 * time.Second)
	require.Error(t, s.ResetOnError())
	require.Equal(t, 10*time.Second, s.backoff.Interval())

	// Next attempt is gated by the doubled interval.
	clk.Advance(5 * time.Second)
	require.NoError(t, s.ResetOnError())
	require.Equal(t, recovery.Error, s.Reading().State)

	clk.Advance(5 * time.Second)
	line.OutputErr = nil
	require.NoError(t, s.ResetOnError())
	require.Equal(t, recovery.Ready, s.Reading().State)
	require.Equal(t, 5*time.Second, s.backoff.Interval())
}

func TestSensorRunPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	line := hwtest.NewLine().ScriptRead(goodFrame)

	var published []Reading
	cfg := Config{Publish: func(r Reading) {
		published = append(published, r)
		cancel()
	}}
	s, _ := testSensor(line, cfg)
	require.NoError(t, s.Init())

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	require.Len(t, published, 1)
	require.Equal(t, recovery.DataUpdated, published[0].State)
	require.Equal(t, 65.2, published[0].Humidity)
}
