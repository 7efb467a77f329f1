// Package mpu6050 drives the MPU6050 inertial sensor over a
// register-addressed bus: staged power bring-up, identity check, and
// big-endian burst reads scaled into physical units by the full-scale
// tables selected at bring-up.
package mpu6050

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
	DefaultStepDelay    = 10 * time.Millisecond
	DefaultPollInterval = 500 * time.Millisecond
	DefaultSampleRate   byte = 9 // 1 kHz / (1+9) = 100 Hz
)

// ErrBadIdentity indicates the identity register did not verify.
var ErrBadIdentity = errors.New("mpu6050: unexpected device identity")

// Config configures a Sensor. Range selectors index the full-scale
// tables literally; DefaultConfig returns the stock selection.
type Config struct {
	// Addr is the device bus address.
	Addr uint8
	// AccelRange indexes the accel full-scale table.
	AccelRange int
	// GyroRange indexes the gyro full-scale table.
	GyroRange int
	// SampleRateDiv divides the 1 kHz internal rate.
	SampleRateDiv byte
	// DLPF selects the digital low-pass filter.
	DLPF byte
	// StepDelay is the settle time between bring-up steps.
	StepDelay time.Duration
	// PollInterval is the delay between poll cycles.
	PollInterval time.Duration

	// Publish, when set, receives a copy of the sample after every
	// poll cycle.
	Publish func(Sample)
}

// DefaultConfig returns the stock configuration: ±16 g, ±2000 deg/s,
// 100 Hz sample rate, 44 Hz filter.
func DefaultConfig() Config {
	return Config{
		Addr:          DefaultAddr,
		AccelRange:    3,
		GyroRange:     3,
		SampleRateDiv: DefaultSampleRate,
		DLPF:          DLPF44Hz,
	}
}

func (c *Config) applyDefaults() {
	if c.Addr == 0 {
		c.Addr = DefaultAddr
	}
	if c.StepDelay == 0 {
		c.StepDelay = DefaultStepDelay
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Sensor owns the device bring-up state and the latest sample. A
// single polling task uses a Sensor; methods are not safe for
// concurrent use.
type Sensor struct {
	bus    hw.Bus
	cfg    Config
	sample Sample

	accelScale float64
	gyroScale  float64

	sleep func(time.Duration)
}

// New creates a Sensor on a shared bus.
func New(bus hw.Bus, cfg Config) *Sensor {
	cfg.applyDefaults()
	return &Sensor{bus: bus, cfg: cfg, sleep: time.Sleep}
}

// Name implements framework.Named.
func (s *Sensor) Name() string {
	return "mpu6050"
}

// Sample returns a copy of the latest sample.
func (s *Sensor) Sample() Sample {
	return s.sample
}

// Init brings the device up: power-on, reset, power-on with settle
// delays, then rate/filter/range configuration and the identity
// check. The sample is zeroed first; any failure leaves the state it
// reached and returns immediately.
func (s *Sensor) Init() error {
	if err := s.selectRanges(); err != nil {
		return err
	}
	s.sample = Sample{State: recovery.Uninitialized}
	steps := []struct {
		cmd  byte
		fail recovery.State
	}{
		{cmdPowerOn, recovery.PowerOnError},
		{cmdReset, recovery.ResetError},
		{cmdPowerOn, recovery.PowerOnError},
	}
	for _, step := range steps {
		if err := s.bus.WriteReg(s.cfg.Addr, regPowerMgmt1, step.cmd); err != nil {
			s.sample.State = step.fail
			return fmt.Errorf("mpu6050: power sequence 0x%02x: %w", step.cmd, err)
		}
		s.sleep(s.cfg.StepDelay)
	}
	for _, w := range []struct{ reg, val byte }{
		{regSampleRateDiv, s.cfg.SampleRateDiv},
		{regConfig, s.cfg.DLPF},
		{regGyroConfig, gyroRanges[s.cfg.GyroRange].config},
		{regAccelConfig, accelRanges[s.cfg.AccelRange].config},
	} {
		if err := s.bus.WriteReg(s.cfg.Addr, w.reg, w.val); err != nil {
			return fmt.Errorf("mpu6050: configure reg 0x%02x: %w", w.reg, err)
		}
	}
	if err := s.verifyIdentity(); err != nil {
		return err
	}
	s.sample.State = recovery.Ready
	glog.V(2).Infof("mpu6050: ready at 0x%02x", s.cfg.Addr)
	return nil
}

// Read burst-reads both axis groups and scales them. Any bus failure
// aborts before any field is touched.
func (s *Sensor) Read() error {
	if s.accelScale == 0 || s.gyroScale == 0 {
		return errors.New("mpu6050: not initialized")
	}
	var accel, gyro [6]byte
	if err := s.bus.ReadReg(s.cfg.Addr, regAccelXOutH, accel[:]); err != nil {
		s.sample.State = recovery.Error
		return fmt.Errorf("mpu6050: read accel: %w", err)
	}
	if err := s.bus.ReadReg(s.cfg.Addr, regGyroXOutH, gyro[:]); err != nil {
		s.sample.State = recovery.Error
		return fmt.Errorf("mpu6050: read gyro: %w", err)
	}
	s.sample.AccelX = axis(accel[0], accel[1], s.accelScale)
	s.sample.AccelY = axis(accel[2], accel[3], s.accelScale)
	s.sample.AccelZ = axis(accel[4], accel[5], s.accelScale)
	s.sample.GyroX = axis(gyro[0], gyro[1], s.gyroScale)
	s.sample.GyroY = axis(gyro[2], gyro[3], s.gyroScale)
	s.sample.GyroZ = axis(gyro[4], gyro[5], s.gyroScale)
	s.sample.State = recovery.DataUpdated
	return nil
}

// ResetOnError reinitializes immediately after any fault. A failed
// recovery leaves the reset-error state.
func (s *Sensor) ResetOnError() error {
	if !s.sample.State.IsError() {
		return nil
	}
	if err := s.Init(); err != nil {
		s.sample.State = recovery.ResetError
		glog.Warningf("mpu6050: recovery failed: %v", err)
		return err
	}
	glog.V(2).Info("mpu6050: recovered")
	return nil
}

// Run implements framework.Runnable: read, recover, publish, sleep.
func (s *Sensor) Run(ctx context.Context) error {
	loop := fx.NewLoop(s.cfg.PollInterval, func(context.Context) {
		if err := s.Read(); err != nil {
			glog.V(2).Infof("mpu6050: read: %v", err)
		}
		s.ResetOnError()
		if s.cfg.Publish != nil {
			s.cfg.Publish(s.sample)
		}
	})
	return loop.Run(ctx)
}

func (s *Sensor) selectRanges() error {
	if s.cfg.AccelRange < 0 || s.cfg.AccelRange >= len(accelRanges) {
		return fmt.Errorf("mpu6050: accel range index %d out of table", s.cfg.AccelRange)
	}
	if s.cfg.GyroRange < 0 || s.cfg.GyroRange >= len(gyroRanges) {
		return fmt.Errorf("mpu6050: gyro range index %d out of table", s.cfg.GyroRange)
	}
	s.accelScale = accelRanges[s.cfg.AccelRange].sensitivity
	s.gyroScale = gyroRanges[s.cfg.GyroRange].sensitivity
	return nil
}

func (s *Sensor) verifyIdentity() error {
	var buf [1]byte
	if err := s.bus.ReadReg(s.cfg.Addr, regWhoAmI, buf[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrBadIdentity, err)
	}
	if buf[0] != identity {
		return fmt.Errorf("%w: 0x%02x", ErrBadIdentity, buf[0])
	}
	return nil
}

func axis(hi, lo byte, sensitivity float64) float64 {
	return float64(int16(uint16(hi)<<8|uint16(lo))) / sensitivity
}
