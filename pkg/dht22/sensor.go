// Package dht22 drives the DHT22 humidity/temperature sensor over its
// single-wire pulse-width protocol: wake the device, measure the 40
// response pulses, threshold them into bits and verify the checksum.
package dht22

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/periph.go/pkg/framework"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/recovery"
)

// Defaults for Config.
const (
	DefaultStartDelay      = 20 * time.Millisecond
	DefaultResponseTimeout = 200 * time.Microsecond
	DefaultBitThreshold    = 40 * time.Microsecond
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryInterval   = 5 * time.Second
	DefaultMaxBackoff      = 5 * time.Minute
)

var (
	// ErrNoResponse indicates the device missed protocol timing.
	ErrNoResponse = errors.New("dht22: no response within protocol timing")
	// ErrChecksum indicates a received frame failed verification.
	ErrChecksum = errors.New("dht22: frame checksum mismatch")
)

// Config configures a Sensor. Zero fields use the defaults above.
type Config struct {
	// StartDelay is how long the start signal holds the line low.
	StartDelay time.Duration
	// ResponseTimeout bounds every wait for a device edge.
	ResponseTimeout time.Duration
	// BitThreshold separates zero pulses from one pulses.
	BitThreshold time.Duration
	// PollInterval is the delay between poll cycles.
	PollInterval time.Duration

	// MaxRetries is the failed recovery budget before the retry
	// interval doubles.
	MaxRetries int
	// RetryInterval is the initial gate between recovery attempts.
	RetryInterval time.Duration
	// MaxBackoff caps the retry interval.
	MaxBackoff time.Duration

	// Publish, when set, receives a copy of the reading after every
	// poll cycle.
	Publish func(Reading)
}

func (c *Config) applyDefaults() {
	if c.StartDelay == 0 {
		c.StartDelay = DefaultStartDelay
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.BitThreshold == 0 {
		c.BitThreshold = DefaultBitThreshold
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
}

// Sensor owns the line protocol and the latest reading. A single
// polling task uses a Sensor; methods are not safe for concurrent use.
type Sensor struct {
	line    hw.Line
	cfg     Config
	reading Reading
	backoff recovery.Backoff

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Sensor on a data line.
func New(line hw.Line, cfg Config) *Sensor {
	cfg.applyDefaults()
	return &Sensor{
		line: line,
		cfg:  cfg,
		backoff: recovery.Backoff{
			Initial: cfg.RetryInterval,
			Max:     cfg.MaxBackoff,
			Budget:  cfg.MaxRetries,
		},
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Name implements framework.Named.
func (s *Sensor) Name() string {
	return "dht22"
}

// Reading returns a copy of the latest reading.
func (s *Sensor) Reading() Reading {
	return s.reading
}

// Init configures the line, zeroes the reading and marks the sensor
// Ready. It fails only when the line cannot be configured.
func (s *Sensor) Init() error {
	if err := s.line.Output(); err != nil {
		s.reading.State = recovery.Error
		return fmt.Errorf("dht22: line setup: %w", err)
	}
	if err := s.line.Set(hw.High); err != nil {
		s.reading.State = recovery.Error
		return fmt.Errorf("dht22: line setup: %w", err)
	}
	s.reading = Reading{State: recovery.Ready}
	return nil
}

// Read performs one wake/measure/decode exchange. On failure the
// reading keeps its previous physical values and only the state
// changes.
func (s *Sensor) Read() error {
	if err := s.startSignal(); err != nil {
		s.fault(recovery.Error)
		return err
	}
	if err := s.awaitAck(); err != nil {
		s.fault(recovery.TimingError)
		return err
	}
	pulses, err := s.measurePulses()
	if err != nil {
		s.fault(recovery.TimingError)
		return err
	}
	frame := frameFromPulses(pulses, s.cfg.BitThreshold)
	if !frame.Valid() {
		s.fault(recovery.ChecksumError)
		return fmt.Errorf("%w: frame %x", ErrChecksum, frame)
	}
	c := frame.Temperature()
	s.reading.Humidity = frame.Humidity()
	s.reading.TemperatureC = c
	s.reading.TemperatureF = c*9/5 + 32
	s.reading.State = recovery.DataUpdated
	glog.V(2).Infof("dht22: %.1f%% %.1fC", s.reading.Humidity, c)
	return nil
}

// ResetOnError reinitializes a faulted sensor once the retry gate
// allows it. Healthy states are left alone.
func (s *Sensor) ResetOnError() error {
	if !s.reading.State.IsError() {
		return nil
	}
	now := s.now()
	if !s.backoff.Due(now) {
		return nil
	}
	s.backoff.Attempt(now)
	if err := s.Init(); err != nil {
		s.backoff.Failure()
		glog.Warningf("dht22: recovery failed (retries %d, interval %s): %v",
			s.backoff.Failures(), s.backoff.Interval(), err)
		return err
	}
	s.backoff.Success()
	glog.V(2).Info("dht22: recovered")
	return nil
}

// Run implements framework.Runnable: read, recover, publish, sleep.
func (s *Sensor) Run(ctx context.Context) error {
	loop := fx.NewLoop(s.cfg.PollInterval, func(context.Context) {
		if err := s.Read(); err != nil {
			glog.V(2).Infof("dht22: read: %v", err)
		}
		s.ResetOnError()
		if s.cfg.Publish != nil {
			s.cfg.Publish(s.reading)
		}
	})
	return loop.Run(ctx)
}

// fault records an error state, arming the recovery gate on the
// transition out of a healthy state.
func (s *Sensor) fault(state recovery.State) {
	if !s.reading.State.IsError() {
		s.backoff.Arm(s.now())
	}
	s.reading.State = state
}

func (s *Sensor) startSignal() error {
	if err := s.line.Output(); err != nil {
		return fmt.Errorf("dht22: drive line: %w", err)
	}
	if err := s.line.Set(hw.Low); err != nil {
		return fmt.Errorf("dht22: drive line: %w", err)
	}
	s.sleep(s.cfg.StartDelay)
	if err := s.line.Input(); err != nil {
		return fmt.Errorf("dht22: release line: %w", err)
	}
	return nil
}

func (s *Sensor) awaitAck() error {
	for _, level := range []hw.Level{hw.Low, hw.High, hw.Low} {
		if _, err := s.line.WaitLevel(level, s.cfg.ResponseTimeout); err != nil {
			return fmt.Errorf("%w: no acknowledgment", ErrNoResponse)
		}
	}
	return nil
}

func (s *Sensor) measurePulses() ([frameBits]time.Duration, error) {
	var pulses [frameBits]time.Duration
	for i := range pulses {
		if _, err := s.line.WaitLevel(hw.High, s.cfg.ResponseTimeout); err != nil {
			return pulses, fmt.Errorf("%w: bit %d", ErrNoResponse, i)
		}
		d, err := s.line.WaitLevel(hw.Low, s.cfg.ResponseTimeout)
		if err != nil {
			return pulses, fmt.Errorf("%w: bit %d", ErrNoResponse, i)
		}
		pulses[i] = d
	}
	return pulses, nil
}
