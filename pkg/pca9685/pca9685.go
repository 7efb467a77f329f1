// Package pca9685 manages a bank of 16-channel PWM actuator boards
// behind one registry: derived bus addresses, prescaler bring-up and
// channel-mask pulse fan-out for servo control.
package pca9685

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"

	fx "github.com/robotalks/periph.go/pkg/framework"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/recovery"
)

// Device geometry and servo domain.
const (
	// DefaultBaseAddr is the bus address of board id 0; board id n
	// lives at DefaultBaseAddr+n.
	DefaultBaseAddr uint8 = 0x40
	// DefaultPWMFreq is the servo output frequency in Hz.
	DefaultPWMFreq = 50.0
	// Channels is the number of PWM outputs per board.
	Channels = 16
	// MaxPulse is the largest channel pulse count.
	MaxPulse = 4095
	// MaxAngle bounds the servo angle domain in degrees.
	MaxAngle = 180.0

	oscillatorHz  = 25000000.0
	pwmResolution = 4096.0
)

// Device registers and MODE1 bits.
const (
	regMode1    byte = 0x00
	regLED0OnL  byte = 0x06
	regPrescale byte = 0xFE

	mode1Sleep   byte = 0x10
	mode1Restart byte = 0x80
)

var (
	// ErrInvalidArgument indicates an angle or id outside its domain.
	ErrInvalidArgument = errors.New("pca9685: invalid argument")
	// ErrNotFound indicates an id inside the configured count with no
	// registered board, typically after a failed bring-up.
	ErrNotFound = errors.New("pca9685: board not found")
	// ErrNotReady indicates a registered board not in a ready state.
	ErrNotReady = errors.New("pca9685: board not ready")
)

// Config configures a Registry. Zero fields use the defaults above.
type Config struct {
	BaseAddr uint8
	PWMFreq  float64
}

func (c *Config) applyDefaults() {
	if c.BaseAddr == 0 {
		c.BaseAddr = DefaultBaseAddr
	}
	if c.PWMFreq == 0 {
		c.PWMFreq = DefaultPWMFreq
	}
}

// BoardInfo is a value snapshot of one registered board.
type BoardInfo struct {
	ID    uint8          `json:"id"`
	Addr  uint8          `json:"addr"`
	State recovery.State `json:"state"`
}

type board struct {
	id    uint8
	addr  uint8
	state recovery.State
}

// Registry exclusively owns the boards. Ids are unique and boards are
// never removed once registered. Registration and fan-out are not
// internally synchronized; callers serialize access.
type Registry struct {
	bus    hw.Bus
	cfg    Config
	boards map[uint8]*board
	count  uint8
}

// New creates an empty Registry on a shared bus.
func New(bus hw.Bus, cfg Config) *Registry {
	cfg.applyDefaults()
	return &Registry{bus: bus, cfg: cfg, boards: make(map[uint8]*board)}
}

// Prescale derives the prescaler register value from the oscillator,
// the counter resolution and the configured output frequency.
func (r *Registry) Prescale() byte {
	return byte(math.Round(oscillatorHz/(pwmResolution*r.cfg.PWMFreq)) - 1)
}

// Init ensures boards 0..count-1 are registered and brought up.
// Already registered ids are skipped, so repeated calls are
// idempotent. A board failing bring-up is not registered; boards
// registered earlier stay. The configured count only grows.
func (r *Registry) Init(count uint8) error {
	prescale := r.Prescale()
	var errs fx.AggregatedError
	for id := uint8(0); id < count; id++ {
		if r.boards[id] != nil {
			continue
		}
		b := &board{id: id, addr: r.cfg.BaseAddr + id}
		if err := r.bringUp(b, prescale); err != nil {
			errs.Add(fmt.Errorf("board %d: %w", id, err))
			continue
		}
		r.boards[id] = b
	}
	if count > r.count {
		r.count = count
	}
	return errs.Aggregate()
}

// SetAngle drives every channel set in the mask on one board to the
// pulse for angle degrees. A write failure aborts the fan-out and is
// surfaced; channels already written keep the new pulse.
func (r *Registry) SetAngle(channels uint16, id uint8, angle float64) error {
	if r == nil {
		return fmt.Errorf("%w: no registry", ErrInvalidArgument)
	}
	if math.IsNaN(angle) || angle < 0 || angle > MaxAngle {
		return fmt.Errorf("%w: angle %v outside [0,%v]", ErrInvalidArgument, angle, MaxAngle)
	}
	if id >= r.count {
		return fmt.Errorf("%w: board id %d outside configured count %d", ErrInvalidArgument, id, r.count)
	}
	b := r.boards[id]
	if b == nil {
		return fmt.Errorf("%w: board %d", ErrNotFound, id)
	}
	if b.state != recovery.Ready {
		return fmt.Errorf("%w: board %d is %s", ErrNotReady, id, b.state)
	}
	pulse := uint16(math.Round(angle / MaxAngle * MaxPulse))
	glog.V(4).Infof("pca9685: board %d mask %04x angle %.1f pulse %d", id, channels, angle, pulse)
	for ch := uint8(0); ch < Channels; ch++ {
		if channels&(1<<ch) == 0 {
			continue
		}
		if err := r.setPulse(b, ch, pulse); err != nil {
			return fmt.Errorf("pca9685: board %d channel %d: %w", id, ch, err)
		}
	}
	return nil
}

// Count returns the configured board count.
func (r *Registry) Count() uint8 {
	return r.count
}

// Boards returns value snapshots of the registered boards, by id.
func (r *Registry) Boards() []BoardInfo {
	infos := make([]BoardInfo, 0, len(r.boards))
	for id := uint8(0); id < r.count; id++ {
		if b := r.boards[id]; b != nil {
			infos = append(infos, BoardInfo{ID: b.id, Addr: b.addr, State: b.state})
		}
	}
	return infos
}

func (r *Registry) bringUp(b *board, prescale byte) error {
	// The prescaler loads only in low-power mode; restart resumes
	// PWM output afterwards.
	for _, w := range []struct{ reg, val byte }{
		{regMode1, mode1Sleep},
		{regPrescale, prescale},
		{regMode1, mode1Restart},
	} {
		if err := r.bus.WriteReg(b.addr, w.reg, w.val); err != nil {
			return fmt.Errorf("bring-up reg 0x%02x: %w", w.reg, err)
		}
	}
	b.state = recovery.Ready
	glog.V(2).Infof("pca9685: board %d ready at 0x%02x", b.id, b.addr)
	return nil
}

func (r *Registry) setPulse(b *board, ch uint8, pulse uint16) error {
	base := regLED0OnL + 4*ch
	for i, val := range []byte{0, 0, byte(pulse), byte(pulse >> 8)} {
		if err := r.bus.WriteReg(b.addr, base+byte(i), val); err != nil {
			return err
		}
	}
	return nil
}
